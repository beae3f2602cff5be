// loadgen fires concurrent cash-on-delivery checkouts at a running
// server to verify that stock never oversells under contention: with
// stock S and N >= S single-unit buyers, exactly S succeed.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "server base URL")
		stock    = flag.Int("stock", 20, "initial stock for the test item")
		requests = flag.Int("requests", 50, "number of concurrent buyers")
		price    = flag.Float64("price", 1000, "unit price for the test item")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	itemID, err := createItem(client, *baseURL, *price, *stock)
	if err != nil {
		log.Fatalf("failed to create test item: %v", err)
	}
	log.Printf("created item %s with stock %d", itemID, *stock)

	var successCount, soldOutCount, errorCount atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			status, err := checkout(client, *baseURL, itemID, fmt.Sprintf("buyer-%d", id))
			switch {
			case err != nil:
				errorCount.Add(1)
			case status == http.StatusCreated:
				successCount.Add(1)
			case status == http.StatusGone:
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("done in %v: %d succeeded, %d sold out, %d errors (expected %d successes)",
		time.Since(start), successCount.Load(), soldOutCount.Load(), errorCount.Load(), *stock)

	if int(successCount.Load()) != *stock {
		log.Fatalf("OVERSELL OR UNDERSELL: %d orders for %d stock", successCount.Load(), *stock)
	}
	log.Println("stock accounting exact")
}

func createItem(client *http.Client, baseURL string, price float64, stock int) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"name":     "loadgen item",
		"price":    price,
		"stock":    stock,
		"owner_id": "loadgen-seller",
		"category": "tools",
	})

	resp, err := client.Post(baseURL+"/api/items", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var item struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", err
	}
	return item.ID, nil
}

func checkout(client *http.Client, baseURL, itemID, buyerID string) (int, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"item_id":        itemID,
		"buyer_id":       buyerID,
		"quantity":       1,
		"address":        "12 Test Lane",
		"contact_number": "0771234567",
		"payment_method": "cash_on_delivery",
	})

	resp, err := client.Post(baseURL+"/api/checkout", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
