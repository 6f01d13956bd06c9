package repository

import (
	"context"
	"errors"
	"fmt"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// mapErr translates driver errors into the models sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var selErr topology.ServerSelectionError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &selErr):
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// parseID converts a hex identifier. Malformed ids cannot name a stored
// record, so they are reported as not found.
func parseID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %q: %w", kind, id, models.ErrNotFound)
	}
	return oid, nil
}
