package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
)

type bookingRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Service string `json:"service,omitempty"`
}

func main() {
	var (
		baseURL = flag.String("base-url", config.String("BASE_URL", "http://localhost:2400"), "booking service base url")
		name    = flag.String("name", config.String("CUSTOMER_NAME", "Ana"), "customer name")
		phone   = flag.String("phone", config.String("CUSTOMER_PHONE", "555-0101"), "customer phone")
		email   = flag.String("email", config.String("CUSTOMER_EMAIL", ""), "customer email")
		address = flag.String("address", config.String("CUSTOMER_ADDRESS", ""), "customer address")
		service = flag.String("service", config.String("SERVICE", ""), "service (server default is Haircut)")
		count   = flag.Int("count", 1, "number of bookings to submit")
		workers = flag.Int("concurrency", 1, "parallel submitters")
	)
	flag.Parse()

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*phone) == "" {
		fatal("name and phone are required")
	}
	if *count < 1 || *workers < 1 {
		fatal("count and concurrency must be positive")
	}

	url := strings.TrimRight(*baseURL, "/") + "/api/appointments"
	client := &http.Client{Timeout: 10 * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req := bookingRequest{
					Name:    *name,
					Phone:   *phone,
					Address: *address,
					Email:   *email,
					Service: *service,
				}
				if *count > 1 {
					req.Name = fmt.Sprintf("%s %d", *name, i+1)
				}
				status, body, err := submit(client, url, req)
				if err != nil {
					fmt.Fprintf(os.Stderr, "booking %d: %v\n", i+1, err)
					continue
				}
				fmt.Printf("booking=%d status=%d body=%s\n", i+1, status, strings.TrimSpace(string(body)))
			}
		}()
	}
	for i := 0; i < *count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func submit(client *http.Client, url string, req bookingRequest) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
