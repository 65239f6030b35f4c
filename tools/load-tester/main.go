package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the orchestration server")
	identity := flag.String("identity", "", "Tenant identity (UUID) to dispatch jobs for; random if empty")
	serviceToken := flag.String("token", "supersecrettoken", "Shared service token")
	concurrency := flag.Int("c", 4, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 10, "Requests per second limit")
	flag.Parse()

	tenant := *identity
	if tenant == "" {
		tenant = uuid.NewString()
	}
	targetURL := fmt.Sprintf("%s/tenants/%s/jobs/scrape", *baseURL, tenant)

	log.Printf("Starting load test on %s", targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 10)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Dispatches block for the full job duration; no client timeout.
			client := &http.Client{}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					payload := fmt.Sprintf(`{"seed_url": "https://load-test.example/docs", "max_depth": "1", "respect_robots": "yes", "collection_name": "worker-%d"}`, workerID)

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue
					}
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("X-Service-Token", *serviceToken)

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}
					resp.Body.Close()

					if resp.StatusCode == http.StatusOK {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	log.Printf("Load test finished. Success: %d, Errors: %d", successCount.Load(), errorCount.Load())
}
