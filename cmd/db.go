package cmd

import (
	"context"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/db"
)

// connectOperator opens the database connection every pipeline command
// needs. Callers are responsible for Close.
func connectOperator(ctx context.Context) (db.Operator, error) {
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		gn.PrintErrorMessage(err)
		return nil, err
	}
	return op, nil
}
