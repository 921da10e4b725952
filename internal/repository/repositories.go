package repository

import (
	"fmt"

	"github.com/deppfellow/go-catalog/internal/database"
	"github.com/deppfellow/go-catalog/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Products ProductRepository
}

// NewRepositories builds the container on the handle opened by the server.
//
// The product store follows the database driver: the pgx pool, the sqlx
// handle or the gorm handle.
func NewRepositories(s *server.Server) (*Repositories, error) {
	products, err := NewProductRepository(s.DB)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Products: products,
	}, nil
}

// NewProductRepository returns the ProductRepository backed by db's open handle.
func NewProductRepository(db *database.Database) (ProductRepository, error) {
	switch {
	case db.Pool != nil:
		return NewPGXProductRepository(db.Pool), nil
	case db.SQL != nil:
		return NewSQLXProductRepository(db.SQL), nil
	case db.ORM != nil:
		return NewGORMProductRepository(db.ORM), nil
	}
	return nil, fmt.Errorf("no open database handle for driver %q", db.Driver)
}
