// Package catalog fetches character records from the remote catalog API.
package catalog

import (
	"encoding/json"
	"errors"
)

// UnknownOrigin is the origin reported when a record carries no origin name.
const UnknownOrigin = "unknown"

// Record is one catalog character. Records are plain values; copies never
// alias each other.
type Record struct {
	ID       int
	Name     string
	Status   string
	ImageKey string // Portrait URL, also the image cache key.
	Species  string
	Origin   string
}

// Snapshot is the ordered result of one successful list fetch.
type Snapshot []Record

// Find returns the record with the given ID.
func (s Snapshot) Find(id int) (Record, bool) {
	for _, r := range s {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// listResponse mirrors the consumed subset of the list endpoint body.
type listResponse struct {
	Results *[]characterJSON `json:"results"`
}

type characterJSON struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Status  string      `json:"status"`
	Image   string      `json:"image"`
	Species string      `json:"species"`
	Origin  *originJSON `json:"origin"`
}

type originJSON struct {
	Name *string `json:"name"`
}

// decodeSnapshot parses a list body. A body without a results array is malformed.
func decodeSnapshot(body []byte) (Snapshot, error) {
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.New("missing results array")
	}

	snap := make(Snapshot, 0, len(*resp.Results))
	for _, c := range *resp.Results {
		snap = append(snap, c.record())
	}
	return snap, nil
}

func (c characterJSON) record() Record {
	origin := UnknownOrigin
	if c.Origin != nil && c.Origin.Name != nil {
		origin = *c.Origin.Name
	}
	return Record{
		ID:       c.ID,
		Name:     c.Name,
		Status:   c.Status,
		ImageKey: c.Image,
		Species:  c.Species,
		Origin:   origin,
	}
}
