// Command webuycars_cache refreshes the WeBuyCars inventory snapshot. The
// site renders through a JavaScript frontend, so instead of scraping the
// DOM this drives a headless browser through the paginated search and
// intercepts the JSON responses of the search API behind it. The collected
// stock is written to the snapshot cache that ordinary tracker runs search.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/cache"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/sources"
)

// apiVehicle mirrors the fields we take from the search API's payload.
type apiVehicle struct {
	StockNumber       string   `json:"StockNumber"`
	Make              string   `json:"Make"`
	Model             string   `json:"Model"`
	Price             *float64 `json:"Price"`
	BuyNowPrice       *float64 `json:"BuyNowPrice"`
	Mileage           *float64 `json:"Mileage"`
	DealerKey         string   `json:"DealerKey"`
	OnlineDescription string   `json:"OnlineDescription"`
}

type apiResponse struct {
	Data []apiVehicle `json:"data"`
}

// collector accumulates stock items from interleaved response handlers.
type collector struct {
	mu    sync.Mutex
	items map[string]sources.StockItem
}

func (c *collector) add(v apiVehicle) {
	if v.StockNumber == "" {
		return
	}

	title := strings.TrimSpace(v.OnlineDescription)
	if title == "" {
		title = strings.TrimSpace(v.Make + " " + v.Model)
	}

	price := v.Price
	if price == nil {
		price = v.BuyNowPrice
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[v.StockNumber] = sources.StockItem{
		StockNumber: v.StockNumber,
		Title:       title,
		Make:        v.Make,
		Model:       v.Model,
		Price:       price,
		Kilometers:  v.Mileage,
		Location:    v.DealerKey,
		URL:         fmt.Sprintf("https://www.webuycars.co.za/buy-a-car/%s/%s/%s", v.Make, v.Model, v.StockNumber),
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *collector) stock() []sources.StockItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	stock := make([]sources.StockItem, 0, len(c.items))
	for _, item := range c.items {
		stock = append(stock, item)
	}
	sort.Slice(stock, func(i, j int) bool { return stock[i].StockNumber < stock[j].StockNumber })
	return stock
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	maxPages := flag.Int("max-pages", 100, "Maximum result pages to walk")
	pageWait := flag.Duration("page-wait", 4*time.Second, "Time to wait for API responses per page")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall refresh timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	appLog, err := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("initializing logging: %v", err)
	}
	defer appLog.Close()

	snapshots, err := cache.Open(cfg.Cache, appLog)
	if err != nil {
		log.Fatalf("opening snapshot cache: %v", err)
	}
	defer snapshots.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stock, err := fetchInventory(ctx, cfg, appLog, *maxPages, *pageWait)
	if err != nil {
		log.Fatalf("fetching inventory: %v", err)
	}
	if len(stock) == 0 {
		log.Fatal("no stock collected; not overwriting the existing snapshot")
	}

	err = snapshots.Set(ctx, models.SourceWeBuyCars, sources.InventoryKey, stock, cfg.Cache.TTL.Snapshot, nil)
	if err != nil {
		log.Fatalf("writing snapshot: %v", err)
	}

	appLog.Info("snapshot refreshed",
		"stock", len(stock),
		"ttl", cfg.Cache.TTL.Snapshot.String())
}

func fetchInventory(ctx context.Context, cfg *config.Config, appLog *logger.Logger, maxPages int, pageWait time.Duration) ([]sources.StockItem, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.Fetch.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	found := &collector{items: make(map[string]sources.StockItem)}
	apiFilter := cfg.Sources.WeBuyCars.APIFilter

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if !strings.Contains(resp.Response.URL, apiFilter) || resp.Response.Status != 200 {
			return
		}

		requestID := resp.RequestID
		go func() {
			c := chromedp.FromContext(browserCtx)
			body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(browserCtx, c.Target))
			if err != nil {
				appLog.Debug("reading api response body", "error", err)
				return
			}

			var decoded apiResponse
			if err := json.Unmarshal(body, &decoded); err != nil {
				appLog.Debug("decoding api response", "error", err)
				return
			}
			for _, vehicle := range decoded.Data {
				found.add(vehicle)
			}
		}()
	})

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("enabling network capture: %w", err)
	}

	emptyPages := 0
	for page := 1; page <= maxPages; page++ {
		before := found.count()
		pageURL := fmt.Sprintf("%s&page=%d", cfg.Sources.WeBuyCars.BaseURL, page)
		appLog.Info("fetching page", "page", page)

		err := chromedp.Run(browserCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(pageWait),
		)
		if err != nil {
			return nil, fmt.Errorf("navigating to page %d: %w", page, err)
		}

		gained := found.count() - before
		appLog.Info("page complete", "page", page, "new_stock", gained, "total", found.count())

		// Two pages in a row with nothing new means the walk ran out of
		// results.
		if gained == 0 {
			emptyPages++
			if emptyPages >= 2 {
				break
			}
		} else {
			emptyPages = 0
		}
	}

	return found.stock(), nil
}
