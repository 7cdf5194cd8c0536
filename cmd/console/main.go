package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    120 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	stories, err := listStories(client, cfg.APIBaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list stories: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Stories:")
	fmt.Println("  0 - New story")
	for i, s := range stories {
		fmt.Printf("  %d - %s (%s)\n", i+1, s.Name, s.GenreProfile)
	}
	fmt.Print("\nSelect a story by number: ")

	var choice int
	if _, err := fmt.Scanf("%d\n", &choice); err != nil || choice < 0 || choice > len(stories) {
		fmt.Fprintf(os.Stderr, "Invalid selection\n")
		os.Exit(1)
	}

	var selected *StoryResponse
	if choice == 0 {
		selected, err = promptNewStory(client, cfg.APIBaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create story: %v\n", err)
			os.Exit(1)
		}
	} else {
		selected = &stories[choice-1]
	}

	msgs, err := getStoryMessages(client, cfg.APIBaseURL, selected.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load story messages: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, selected, msgs),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func promptNewStory(client *http.Client, baseURL string) (*StoryResponse, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Story name: ")
	name, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("story name cannot be empty")
	}

	fmt.Print("Genre (blank for general): ")
	genre, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read genre: %w", err)
	}
	genre = strings.TrimSpace(genre)

	return createStory(client, baseURL, name, genre)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
