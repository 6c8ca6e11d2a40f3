// Command votecheck exercises a running server: it creates a poll, fires
// concurrent votes from one voter address and verifies that exactly one was
// recorded.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type poll struct {
	ID      int64 `json:"id"`
	Options []struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	} `json:"options"`
}

type results struct {
	TotalVotes int64 `json:"total_votes"`
}

type voteResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	workers := flag.Int("n", 20, "concurrent vote attempts")
	voter := flag.String("voter", "198.51.100.7", "voter address sent as X-Real-IP")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	created, err := createPoll(client, *baseURL)
	if err != nil {
		fmt.Printf("Error creating poll: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created poll %d\n", created.ID)

	votePath := fmt.Sprintf("%s/api/v1/polls/%d/votes", *baseURL, created.ID)
	body := []byte(`{"option_id":` + strconv.FormatInt(created.Options[0].ID, 10) + `}`)

	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			kind := castVote(client, votePath, body, *voter)
			mu.Lock()
			counts[kind]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	var res results
	if err := getJSON(client, fmt.Sprintf("%s/api/v1/polls/%d/results", *baseURL, created.ID), &res); err != nil {
		fmt.Printf("Error reading results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Outcomes: %v\n", counts)
	fmt.Printf("Total votes: %d\n", res.TotalVotes)

	if counts["recorded"] == 1 && counts["already_voted"] == *workers-1 && res.TotalVotes == 1 {
		fmt.Println("\n✅ Exactly one vote recorded, every other attempt rejected as a duplicate.")
		return
	}
	fmt.Println("\n❌ Duplicate vote protection failed.")
	os.Exit(1)
}

func createPoll(client *http.Client, baseURL string) (*poll, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"title":       "votecheck " + time.Now().Format(time.RFC3339),
		"option_list": []string{"Yes", "No"},
	})
	resp, err := client.Post(baseURL+"/api/v1/polls", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	var p poll
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if len(p.Options) == 0 {
		return nil, fmt.Errorf("poll %d has no options", p.ID)
	}
	return &p, nil
}

func castVote(client *http.Client, url string, body []byte, voter string) string {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "request_error"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", voter)

	resp, err := client.Do(req)
	if err != nil {
		return "request_error"
	}
	defer resp.Body.Close()

	var vr voteResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "decode_error"
	}
	return vr.Kind
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}
