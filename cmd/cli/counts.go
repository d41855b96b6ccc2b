package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

var countsCmd = &cobra.Command{
	Use:   "counts <photo-id> [photo-id...]",
	Short: "Read engagement counts for one or more photos",
	Long: `Read reaction counts, view counts, and (when authenticated) your own
reaction for a batch of photos in a single round trip.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getCounts(args)
	},
}

type countsResponse struct {
	Results map[string]struct {
		Exists   bool `json:"exists"`
		Snapshot *struct {
			Counts      map[string]int64 `json:"counts"`
			ViewCount   int64            `json:"view_count"`
			OwnReaction *string          `json:"own_reaction"`
		} `json:"snapshot"`
	} `json:"results"`
}

func getCounts(photoIDs []string) error {
	payload := map[string]interface{}{"photo_ids": photoIDs}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := doRequest("POST", "/api/engagement/counts", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var resp countsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]string, 0, len(resp.Results))
	for id := range resp.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := resp.Results[id]
		if !entry.Exists || entry.Snapshot == nil {
			fmt.Printf("%s  (deleted)\n", id)
			continue
		}
		fmt.Printf("%s  views=%d", id, entry.Snapshot.ViewCount)
		kinds := make([]string, 0, len(entry.Snapshot.Counts))
		for kind := range entry.Snapshot.Counts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf(" %s=%d", kind, entry.Snapshot.Counts[kind])
		}
		if entry.Snapshot.OwnReaction != nil {
			fmt.Printf("  (you: %s)", *entry.Snapshot.OwnReaction)
		}
		fmt.Println()
	}
	return nil
}

// doRequest issues an authenticated API call and returns the response body.
func doRequest(method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
