package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// checksumFields is the canonical projection hashed for every event.
type checksumFields struct {
	ID         string         `json:"id"`
	EventType  string         `json:"eventType"`
	BookID     string         `json:"bookId"`
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	FromStatus string         `json:"fromStatus"`
	ToStatus   string         `json:"toStatus"`
	Reason     string         `json:"reason"`
	TemplateID string         `json:"templateId"`
	Metadata   map[string]any `json:"metadata"`
	Sequence   int64          `json:"sequence"`
	Timestamp  string         `json:"timestamp"`
}

// ComputeChecksum hashes prev together with the RFC 8785 canonical form of the
// event's own fields. The stored Checksum and PrevChecksum are not inputs.
func ComputeChecksum(prev string, event *Event) (string, error) {
	if event == nil {
		return "", ErrEventRequired
	}
	fields := checksumFields{
		ID:         event.ID.String(),
		EventType:  string(event.EventType),
		ActorID:    event.ActorID,
		Action:     event.Action,
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		Reason:     event.Reason,
		TemplateID: event.TemplateID,
		Metadata:   cloneMetadata(event.Metadata),
		Sequence:   event.Sequence,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if event.BookID != nil {
		fields.BookID = event.BookID.String()
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("audit: encode checksum fields: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("audit: canonicalise checksum fields: %w", err)
	}

	if prev == "" {
		prev = GenesisChecksum
	}
	hash := sha256.New()
	hash.Write([]byte(prev))
	hash.Write(canonical)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// seal links event to its predecessor and stamps the checksum.
func seal(event *Event, previous *Event) error {
	event.PrevChecksum = GenesisChecksum
	event.Sequence = 1
	if previous != nil {
		event.PrevChecksum = previous.Checksum
		event.Sequence = previous.Sequence + 1
	}
	checksum, err := ComputeChecksum(event.PrevChecksum, event)
	if err != nil {
		return err
	}
	event.Checksum = checksum
	return nil
}
