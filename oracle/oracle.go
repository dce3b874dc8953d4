// Package oracle asks a language model to arrange a described song for
// the music box. The oracle is an interchangeable producer: its output
// must satisfy the exact same sequence contract as audio extraction, and
// anything less than a fully valid response collapses to an empty
// sequence so downstream stages behave as if the input were silence.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sgrandin/tinewheel/logging"
	"github.com/sgrandin/tinewheel/score"
	"github.com/sgrandin/tinewheel/vocab"
)

// Config holds the oracle endpoint and arrangement constraints.
type Config struct {
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`

	// MinSameNoteGap is the re-strike interval the response must
	// respect, mirroring the extraction-side spacing filter.
	MinSameNoteGap float64 `json:"min_same_note_gap"`

	HTTPClient *http.Client `json:"-"`
}

// DefaultConfig returns oracle defaults. The API key is read from
// ANTHROPIC_API_KEY.
func DefaultConfig() *Config {
	return &Config{
		APIKey:         os.Getenv("ANTHROPIC_API_KEY"),
		BaseURL:        "https://api.anthropic.com",
		Model:          "claude-3-5-sonnet-20241022",
		MaxTokens:      2000,
		Temperature:    0,
		Timeout:        60 * time.Second,
		MinSameNoteGap: 0.15,
	}
}

// Client talks to the messages endpoint and validates what comes back.
type Client struct {
	cfg   *Config
	vocab *vocab.Vocabulary
	httpc *http.Client
	log   logging.Logger
}

// NewClient creates an oracle client for the given vocabulary.
func NewClient(v *vocab.Vocabulary, cfg *Config) (*Client, error) {
	if v == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}

	return &Client{
		cfg:   cfg,
		vocab: v,
		httpc: httpc,
		log:   logging.WithFields(logging.Fields{"component": "oracle"}),
	}, nil
}

// Compose asks the oracle for a note sequence playing the described song
// within duration seconds. Any failure other than cancellation of the
// caller's context (transport errors, truncated output, schema
// violations, out-of-vocabulary pitches, times outside [0, duration],
// same-pitch spacing violations) fails closed: the error is logged and
// an empty sequence is returned.
func (c *Client) Compose(ctx context.Context, description string, duration float64) (score.Sequence, error) {
	seq, err := c.compose(ctx, description, duration)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Error(err, "oracle response rejected, using empty sequence", logging.Fields{
			"description": description,
		})
		return score.Sequence{}, nil
	}
	return seq, nil
}

func (c *Client) compose(ctx context.Context, description string, duration float64) (score.Sequence, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("target duration must be positive, got %g", duration)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	text, err := c.requestArrangement(ctx, description, duration)
	if err != nil {
		return nil, err
	}

	return c.parseArrangement(text, duration)
}

// requestArrangement performs the messages call and returns the
// assistant's text.
func (c *Client) requestArrangement(ctx context.Context, description string, duration float64) (string, error) {
	reqBody := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System: "You are a musical expert specializing in mechanical music boxes. " +
			"You understand their physical limitations and how to arrange music appropriately for them.",
		Messages: []message{
			{Role: "user", Content: c.buildPrompt(description, duration)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding oracle envelope: %w", err)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("oracle response contains no text content")
}

// parseArrangement validates the assistant text against the sequence
// contract. The whole response is rejected on the first violation; a
// partially valid arrangement is never returned.
func (c *Client) parseArrangement(text string, duration float64) (score.Sequence, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasSuffix(trimmed, "}") {
		return nil, fmt.Errorf("response appears to be truncated")
	}

	var payload struct {
		Rationale string              `json:"rationale"`
		Thinking  string              `json:"thinking"` // legacy field name
		Notes     [][]json.RawMessage `json:"notes"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("parsing arrangement JSON: %w", err)
	}
	if payload.Notes == nil {
		return nil, fmt.Errorf("arrangement has no notes field")
	}

	events := make(score.Sequence, 0, len(payload.Notes))
	for i, pair := range payload.Notes {
		if len(pair) != 2 {
			return nil, fmt.Errorf("note %d: expected [time, pitch] pair", i)
		}

		var t float64
		if err := json.Unmarshal(pair[0], &t); err != nil {
			return nil, fmt.Errorf("note %d: invalid time: %w", i, err)
		}
		var name string
		if err := json.Unmarshal(pair[1], &name); err != nil {
			return nil, fmt.Errorf("note %d: invalid pitch: %w", i, err)
		}

		if !c.vocab.Contains(name) {
			return nil, fmt.Errorf("note %d: pitch %q not in vocabulary", i, name)
		}
		if t < 0 || t > duration {
			return nil, fmt.Errorf("note %d: time %.3f outside [0, %.3f]", i, t, duration)
		}
		events = append(events, score.Event{Time: t, Pitch: name})
	}

	// Same-pitch spacing must hold just as it would after extraction.
	lastSeen := make(map[string]float64)
	for _, e := range events.Sorted() {
		if last, seen := lastSeen[e.Pitch]; seen && e.Time-last < c.cfg.MinSameNoteGap {
			return nil, fmt.Errorf("pitch %s re-struck after %.3fs, minimum is %.3fs", e.Pitch, e.Time-last, c.cfg.MinSameNoteGap)
		}
		lastSeen[e.Pitch] = e.Time
	}

	rationale := payload.Rationale
	if rationale == "" {
		rationale = payload.Thinking
	}
	c.log.Info("oracle arrangement accepted", logging.Fields{
		"notes":     len(events),
		"rationale": rationale,
	})
	return events, nil
}

// buildPrompt describes the instrument's constraints to the model.
func (c *Client) buildPrompt(description string, duration float64) string {
	notes := strings.Join(c.vocab.Names(), ", ")
	lowest := c.vocab.Name(0)
	highest := c.vocab.Name(c.vocab.Len() - 1)

	return fmt.Sprintf(`I need musical notes and timing for a mechanical music box that will play %q.

Important context:
- This is a physical music box with metal tines plucked by pins on a rotating cylinder.
- The cylinder takes exactly %.1f seconds for one complete rotation.
- The music box only has these notes: %s. Nothing below %s and nothing above %s.
- If the song needs unavailable notes, transpose it to a key that works with these notes.
- Leave at least %.2f seconds between repeats of the same note so the tine can resonate.
- Multiple different notes may sound simultaneously for chords.
- Never slow a song down; only speed it up if it does not fit the rotation time.

Respond with only valid JSON in this exact format:
{
    "rationale": "one line covering key, transposition and timing decisions",
    "notes": [
        [0.0, "C5"],
        [0.4, "E5"]
    ]
}

Times must start at 0 and cannot exceed %.1f seconds. Only use notes from the list above. The rationale must be a single line with no line breaks.`,
		description, duration, notes, lowest, highest, c.cfg.MinSameNoteGap, duration)
}

// Anthropic messages API shapes (only the fields this client touches).
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
