// SPDX-License-Identifier: MIT

package panopto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Seconds handles duration fields that can be 3725, 3725.5 or "3725.5".
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*s = 0
		return nil
	}
	// If it's a JSON string: "3725.5"
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if v == "" {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("duration: invalid string %q", v)
		}
		*s = Seconds(f)
		return nil
	}
	// Otherwise treat as number
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("duration: invalid json value: %s", string(b))
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("duration: not a number: %s", n.String())
	}
	*s = Seconds(f)
	return nil
}

// Count handles counter fields that can be 42, "42" or null.
type Count int

func (v *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*v = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*v = 0
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("count: invalid string %q", s)
		}
		*v = Count(i)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("count: invalid json value: %s", string(b))
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("count: not an integer: %s", n.String())
	}
	*v = Count(i)
	return nil
}

// Session represents one recording returned by the folder sessions listing.
// CreatedDate is kept as the raw server string so exports stay byte-stable.
type Session struct {
	ID       string  `json:"Id"`
	Name     string  `json:"Name"`
	Duration Seconds `json:"Duration"`
	Created  string  `json:"CreatedDate"`
	FolderID string  `json:"ParentFolderId"`
	Views    Count   `json:"ViewerCount"`
	State    string  `json:"State"`
}

// SessionPage is one batch of sessions plus the server-declared folder total.
type SessionPage struct {
	Results []Session `json:"Results"`
	Total   int       `json:"TotalNumberOfResults"`

	// Requested page, echoed back for callers.
	Page int `json:"-"`
	Size int `json:"-"`
}

// PageRequest identifies one page of the folder listing.
type PageRequest struct {
	Number int
	Size   int
}

// ListSessions retrieves one page of sessions for a folder, sorted by
// creation date descending.
func (c *Client) ListSessions(ctx context.Context, folderID string, page PageRequest) (*SessionPage, error) {
	params := url.Values{}
	params.Set("sortField", "CreatedDate")
	params.Set("sortOrder", "Desc")
	params.Set("pageNumber", strconv.Itoa(page.Number))
	params.Set("pageSize", strconv.Itoa(page.Size))

	path := "/Panopto/api/v1/folders/" + url.PathEscape(folderID) + "/sessions"

	body, err := c.get(ctx, path, params, "sessions")
	if err != nil {
		return nil, err
	}

	var pg SessionPage
	if err := json.Unmarshal(body, &pg); err != nil {
		return nil, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: "sessions",
			Err:       err,
		}
	}

	pg.Page = page.Number
	pg.Size = page.Size
	return &pg, nil
}
