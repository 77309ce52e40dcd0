package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dishaguide/disha/internal/auth"
	"github.com/dishaguide/disha/internal/config"
)

// tokenCmd issues a signed bearer token for local testing against a running
// server that shares the same DISHA_JWT_SECRET.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")
		email, _ := cmd.Flags().GetString("email")
		validity, _ := cmd.Flags().GetDuration("validity")
		if uid == "" || email == "" {
			return fmt.Errorf("--uid and --email are required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := auth.GenerateToken(uid, email, []byte(cfg.Auth.JWTSecret), validity)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	tokenCmd.Flags().String("uid", "", "user id to embed in the token")
	tokenCmd.Flags().String("email", "", "email to embed in the token")
	tokenCmd.Flags().Duration("validity", 24*time.Hour, "token validity window")
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Chat model", "%s", cfg.Gemini.ChatModel)
	printStatus("Recommend model", "%s", cfg.Gemini.RecommendModel)
	printStatus("Forge model", "%s", cfg.Gemini.ForgeModel)
	printStatus("Resource model", "%s", cfg.Gemini.ResourceModel)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
