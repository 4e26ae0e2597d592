package transport

import (
	"encoding/json"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/manager"
	"codeberg.org/mutker/sysfeed/internal/provider"
)

const (
	typeListen      = "listen"
	typeUnlisten    = "unlisten"
	typeListening   = "listening"
	typeUnlistening = "unlistening"
	typeEmission    = "emission"
	typeError       = "error"
)

// request is an inbound client message.
type request struct {
	Type       string         `json:"type"`
	ConfigHash string         `json:"configHash"`
	Config     map[string]any `json:"config"`
}

type ackMessage struct {
	Type       string `json:"type"`
	ConfigHash string `json:"configHash"`
}

type emissionMessage struct {
	Type       string          `json:"type"`
	ConfigHash string          `json:"configHash"`
	Variables  provider.Output `json:"variables"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

type errorMessage struct {
	Type       string `json:"type"`
	ConfigHash string `json:"configHash,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func encodeEmission(e manager.Emission) ([]byte, error) {
	return encode(emissionMessage{
		Type:       typeEmission,
		ConfigHash: e.ConfigHash,
		Variables:  e.Output,
		Timestamp:  e.Timestamp.UnixMilli(),
	})
}

func encodeAck(kind, configHash string) ([]byte, error) {
	return encode(ackMessage{Type: kind, ConfigHash: configHash})
}

func encodeError(configHash string, err error) ([]byte, error) {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.ErrInternal
	}

	return encode(errorMessage{
		Type:       typeError,
		ConfigHash: configHash,
		Code:       string(code),
		Message:    err.Error(),
	})
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New().Wrap(ErrEncodeFailed, err)
	}

	return data, nil
}

func decodeRequest(data []byte) (request, error) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return request{}, errors.New().Wrap(ErrMalformedMessage, err)
	}

	return req, nil
}
