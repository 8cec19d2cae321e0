package recordstore

import (
	"gorm.io/gorm"

	"github.com/mrlokans/catalog/internal/logger"
)

// Client binds a database connection to a change broker. Tables are created
// from it with NewTable.
type Client struct {
	db     *gorm.DB
	broker Broker
	log    *logger.Logger
}

func New(db *gorm.DB, broker Broker, log *logger.Logger) *Client {
	return &Client{
		db:     db,
		broker: broker,
		log:    log,
	}
}

func (c *Client) DB() *gorm.DB {
	return c.db
}

// Subscribe registers handler for changes matching filter.
func (c *Client) Subscribe(filter ChangeFilter, handler func(Change)) (*Subscription, error) {
	return c.broker.Subscribe(filter, handler)
}
