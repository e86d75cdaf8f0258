package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

// EnsureDatasetWithClient creates project.schema when it does not exist yet.
func EnsureDatasetWithClient(ctx context.Context, client *bigquery.Client, project, schema, location string) error {
	ds := client.DatasetInProject(project, schema)

	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("EnsureDatasetWithClient: reading %s.%s: %w", project, schema, err)
	}

	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("EnsureDatasetWithClient: creating %s.%s: %w", project, schema, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
