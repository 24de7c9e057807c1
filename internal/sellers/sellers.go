package sellers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/example/storehours/internal/db"
	"github.com/example/storehours/internal/domain/tags"
	"github.com/example/storehours/internal/domain/timing"
	"github.com/example/storehours/internal/internaltypes"
)

// Seller is an outlet record from the commerce catalog with its declarations.
type Seller struct {
	ID   string     `json:"id" validate:"required,max=128"`
	Name string     `json:"name" validate:"required,max=256"`
	Tags []tags.Tag `json:"tags" validate:"dive"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

var validate = validator.New()

func (s Seller) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", internaltypes.ErrInvalidInput, err)
	}
	for i, t := range s.Tags {
		if t.Code != timing.TagTiming {
			continue
		}
		if v, ok := t.Value(timing.FieldLocation); !ok || v == "" {
			return fmt.Errorf("%w: timing tag %d has no location", internaltypes.ErrInvalidInput, i)
		}
	}
	return nil
}

// LocationIDs returns the distinct locations referenced by timing tags, in
// first-seen order.
func (s Seller) LocationIDs() []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags.Filter(s.Tags, timing.TagTiming) {
		for _, it := range t.List {
			if it.Code != timing.FieldLocation || it.Value == "" || seen[it.Value] {
				continue
			}
			seen[it.Value] = true
			out = append(out, it.Value)
		}
	}
	return out
}

// ParseJSON decodes a single seller object or an array of sellers.
func ParseJSON(b []byte) ([]Seller, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var out []Seller
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", internaltypes.ErrInvalidInput, err)
		}
		return out, nil
	}
	var s Seller
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", internaltypes.ErrInvalidInput, err)
	}
	return []Seller{s}, nil
}

// Status is the last evaluated open/closed state of a seller location.
type Status struct {
	SellerID   string          `json:"seller_id"`
	LocationID string          `json:"location_id"`
	Open       bool            `json:"open"`
	Window     timing.Window   `json:"window"`
	Rule       timing.Rule     `json:"rule"`
	Category   timing.Category `json:"category,omitempty"`
	CheckedAt  time.Time       `json:"checked_at"`
	ChangedAt  time.Time       `json:"changed_at"`
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Upsert(ctx context.Context, s Seller) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ts := s.Tags
	if ts == nil {
		ts = []tags.Tag{}
	}
	raw, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	return r.db.Exec(ctx, `
INSERT INTO sellers(id,name,tags) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, tags=EXCLUDED.tags, updated_at=now()`,
		s.ID, s.Name, raw)
}

func (r *Repo) Get(ctx context.Context, id string) (Seller, error) {
	var (
		s   Seller
		raw []byte
	)
	err := r.db.QueryRow(ctx, `SELECT id,name,tags,created_at,updated_at FROM sellers WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &raw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Seller{}, db.WrapNotFound(err)
	}
	if err := json.Unmarshal(raw, &s.Tags); err != nil {
		return Seller{}, fmt.Errorf("decode tags of seller %s: %w", id, err)
	}
	return s, nil
}

func (r *Repo) List(ctx context.Context, limit int) ([]Seller, error) {
	return r.ListAfter(ctx, "", limit)
}

// ListAfter returns up to limit sellers with ids greater than afterID, in id
// order. Pass the last id of one page to fetch the next.
func (r *Repo) ListAfter(ctx context.Context, afterID string, limit int) ([]Seller, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,name,tags,created_at,updated_at
FROM sellers
WHERE id > $1
ORDER BY id
LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Seller
	for rows.Next() {
		var (
			s   Seller
			raw []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &s.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of seller %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveStatus records a status snapshot. changed_at only moves when the open
// flag flips.
func (r *Repo) SaveStatus(ctx context.Context, st Status) error {
	return r.db.Exec(ctx, `
INSERT INTO store_status(seller_id,location_id,is_open,time_from,time_to,rule,category,checked_at,changed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
ON CONFLICT (seller_id,location_id) DO UPDATE SET
	is_open=EXCLUDED.is_open,
	time_from=EXCLUDED.time_from,
	time_to=EXCLUDED.time_to,
	rule=EXCLUDED.rule,
	category=EXCLUDED.category,
	checked_at=EXCLUDED.checked_at,
	changed_at=CASE WHEN store_status.is_open <> EXCLUDED.is_open THEN EXCLUDED.checked_at ELSE store_status.changed_at END`,
		st.SellerID, st.LocationID, st.Open, st.Window.TimeFrom, st.Window.TimeTo, string(st.Rule), string(st.Category), st.CheckedAt)
}

func (r *Repo) ListStatuses(ctx context.Context, sellerID string) ([]Status, error) {
	rows, err := r.db.Query(ctx, `
SELECT seller_id,location_id,is_open,time_from,time_to,rule,category,checked_at,changed_at
FROM store_status
WHERE seller_id=$1
ORDER BY location_id`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Status
	for rows.Next() {
		var (
			st             Status
			rule, category string
		)
		if err := rows.Scan(&st.SellerID, &st.LocationID, &st.Open, &st.Window.TimeFrom, &st.Window.TimeTo,
			&rule, &category, &st.CheckedAt, &st.ChangedAt); err != nil {
			return nil, err
		}
		st.Rule = timing.Rule(rule)
		st.Category = timing.Category(category)
		out = append(out, st)
	}
	return out, rows.Err()
}
