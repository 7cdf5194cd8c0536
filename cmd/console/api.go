package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/story"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StoryResponse struct {
	story.Story
	GenreProfile string `json:"genre_profile"`
}

type CreateStoryRequest struct {
	Name  string `json:"name"`
	Genre string `json:"genre,omitempty"`
}

type GenerateRequest struct {
	StoryID uuid.UUID `json:"story_id"`
	Prompt  string    `json:"prompt"`
}

type ViolationCounts struct {
	CharacterInconsistency int `json:"character_inconsistency"`
	TimelineContradiction  int `json:"timeline_contradiction"`
	WorldRuleViolation     int `json:"world_rule_violation"`
	IgnoredFact            int `json:"ignored_fact"`
}

type GenerateResponse struct {
	Message        story.Message   `json:"message"`
	StabilityScore int             `json:"stability_score"`
	Violations     ViolationCounts `json:"violations"`
	SummaryUpdated bool            `json:"summary_updated"`
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("request failed: %s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func listStories(client *http.Client, baseURL string) ([]StoryResponse, error) {
	resp, err := client.Get(baseURL + "/v1/stories")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var stories []StoryResponse
	if err := decodeResponse(resp, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func createStory(client *http.Client, baseURL string, name, genre string) (*StoryResponse, error) {
	data, err := json.Marshal(CreateStoryRequest{Name: name, Genre: genre})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/stories", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var s StoryResponse
	if err := decodeResponse(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func getStoryMessages(client *http.Client, baseURL string, storyID uuid.UUID) ([]story.Message, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/stories/%s/messages", baseURL, storyID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var msgs []story.Message
	if err := decodeResponse(resp, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func sendGenerate(client *http.Client, baseURL string, storyID uuid.UUID, prompt string) (*GenerateResponse, error) {
	data, err := json.Marshal(GenerateRequest{StoryID: storyID, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/generate", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var genResp GenerateResponse
	if err := decodeResponse(resp, &genResp); err != nil {
		return nil, err
	}
	return &genResp, nil
}
