package feed

import "time"

// SessionState is the persisted form of a page session.
type SessionState struct {
	ID           string    `json:"id"`
	CategorySlug string    `json:"category_slug"`
	SourceSlug   string    `json:"source_slug,omitempty"`
	Label        string    `json:"label"`
	LabelLocked  bool      `json:"label_locked"`
	ActiveMonth  string    `json:"active_month,omitempty"`
	Cursor       int       `json:"cursor"`
	Rendered     int       `json:"rendered"`
	Finished     bool      `json:"finished"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// State snapshots the controller.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionState{
		ID:           c.id,
		CategorySlug: c.categorySlug,
		SourceSlug:   c.sourceSlug,
		Label:        c.label,
		LabelLocked:  c.labelLocked,
		Cursor:       c.loader.Cursor(),
		Rendered:     c.rendered,
		Finished:     c.finished,
		UpdatedAt:    c.updatedAt,
	}
}

// Restore applies a saved state to a freshly built controller. The loader's
// cursor only moves forward, so restoring onto a used controller is a no-op
// for chunks already delivered. A finished state detaches the schedulers.
func (c *Controller) Restore(s SessionState) {
	c.loader.Seek(s.Cursor)

	c.mu.Lock()
	if s.Label != "" {
		c.label = s.Label
	}
	c.labelLocked = c.labelLocked || s.LabelLocked
	if s.Rendered > c.rendered {
		c.rendered = s.Rendered
	}
	if !s.UpdatedAt.IsZero() {
		c.updatedAt = s.UpdatedAt
	}
	detach := s.Finished && !c.finished
	if detach {
		c.finished = true
	}
	c.mu.Unlock()

	if detach {
		for _, sch := range c.schedulers {
			sch.Detach()
		}
	}
}
