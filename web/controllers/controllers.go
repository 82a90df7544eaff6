package controllers

import (
	"errors"

	"sellpage/checkout"
	"sellpage/gateway"
	"sellpage/page"
	"sellpage/web/db"
)

var (
	machine *checkout.Machine
	payGW   *gateway.Client
)

// Setup wires the handlers to their collaborators; called once from main.
func Setup(m *checkout.Machine, gw *gateway.Client) {
	machine = m
	payGW = gw
}

// PageStore loads published configurations from the pages table. Malformed
// documents surface as not-found: the buyer cannot tell the difference and
// must not see a crash.
type PageStore struct{}

func (PageStore) Load(slug string) (page.Config, error) {
	var row db.Page
	if err := db.DB.First(&row, "slug = ?", slug).Error; err != nil {
		return page.Config{}, page.ErrNotFound
	}

	cfg, err := page.Parse(slug, row.Document)
	if errors.Is(err, page.ErrMalformed) {
		return page.Config{}, page.ErrNotFound
	}
	return cfg, err
}
