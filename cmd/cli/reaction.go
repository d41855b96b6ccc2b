package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var reactCmd = &cobra.Command{
	Use:   "react <photo-id> <kind>",
	Short: "Set your reaction on a photo",
	Long: `Set your reaction on a photo. Kinds: like, heart, wow, haha.
Reacting again with a different kind replaces the previous reaction.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setReaction(args[0], args[1])
	},
}

var unreactCmd = &cobra.Command{
	Use:   "unreact <photo-id>",
	Short: "Remove your reaction from a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removeReaction(args[0])
	},
}

func setReaction(photoID, kind string) error {
	if authToken == "" {
		return fmt.Errorf("reacting requires a token; set PINLENS_TOKEN or pass --token")
	}

	payload := map[string]string{"kind": kind}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := doRequest("POST", "/api/photos/"+photoID+"/reaction", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	fmt.Printf("Reacted %s to %s\n", kind, photoID)
	return nil
}

func removeReaction(photoID string) error {
	if authToken == "" {
		return fmt.Errorf("unreacting requires a token; set PINLENS_TOKEN or pass --token")
	}

	body, err := doRequest("DELETE", "/api/photos/"+photoID+"/reaction", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	fmt.Printf("Removed reaction from %s\n", photoID)
	return nil
}
