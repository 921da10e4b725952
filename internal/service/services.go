// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import (
	"github.com/deppfellow/go-catalog/internal/repository"
	"github.com/deppfellow/go-catalog/internal/server"
)

// Services is the set of services the handlers are built from.
type Services struct {
	Product *ProductService
}

// NewService wires each service to its repository.
func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Product: NewProductService(s, repos.Products),
	}, nil
}
