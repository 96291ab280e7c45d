package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMalformedResponse = errors.New("completion: response is not a json object")
	ErrNoReply           = errors.New("completion: response carried no reply text")
)

// Result is a reply together with the strategy that produced it.
type Result struct {
	Reply  string
	Source string
}

type extractor struct {
	source  string
	extract func(map[string]json.RawMessage) (string, bool)
}

// extractors run in order of preference; the first to yield text wins.
var extractors = []extractor{
	{source: "choices", extract: firstChoiceContent},
	{source: "reply", extract: topLevelReply},
}

func extractReply(body []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	for _, ex := range extractors {
		if reply, ok := ex.extract(fields); ok {
			return Result{Reply: reply, Source: ex.source}, nil
		}
	}

	return Result{}, ErrNoReply
}

func firstChoiceContent(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["choices"]
	if !ok {
		return "", false
	}

	var choices []struct {
		Message *struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &choices); err != nil || len(choices) == 0 || choices[0].Message == nil {
		return "", false
	}

	return nonBlankString(choices[0].Message.Content)
}

func topLevelReply(fields map[string]json.RawMessage) (string, bool) {
	return nonBlankString(fields["reply"])
}

func nonBlankString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}

	text = strings.TrimSpace(text)
	return text, text != ""
}

type apiError struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type apiErrorEnvelope struct {
	Error *apiError `json:"error,omitempty"`
}

func buildAPIError(statusCode int, body []byte) error {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		message := strings.TrimSpace(envelope.Error.Message)
		switch {
		case envelope.Error.Code != nil && message != "":
			return fmt.Errorf("chat api error (%d, %v): %s", statusCode, envelope.Error.Code, message)
		case message != "":
			return fmt.Errorf("chat api error (%d): %s", statusCode, message)
		case envelope.Error.Code != nil:
			return fmt.Errorf("chat api error (%d, %v)", statusCode, envelope.Error.Code)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return fmt.Errorf("chat api error (%d): %s", statusCode, snippet)
}
