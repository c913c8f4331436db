package replication

import (
	"encoding/json"
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/store"
)

// Event - wire form of a changeset for message brokers.
type Event struct {
	TxID string        `json:"tx_id"`
	Rows domain.Tables `json:"rows"`
}

func MarshalEvent(cs store.Changeset) ([]byte, error) {
	body, err := json.Marshal(Event{TxID: cs.TxID, Rows: cs.Rows})
	if err != nil {
		return nil, fmt.Errorf("could not marshal changeset %s: %w", cs.TxID, err)
	}
	return body, nil
}
