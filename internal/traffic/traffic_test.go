package traffic

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLogOnlyFenceAndRepointDoNotError(t *testing.T) {
	router := &LogOnly{Logger: zap.NewNop()}
	if err := router.Fence(context.Background(), "db-1.prod.internal"); err != nil {
		t.Fatalf("Fence: %v", err)
	}
	if err := router.Repoint(context.Background(), "db-1.prod.internal", Endpoint{Provider: "gcp", Region: "us-central1"}); err != nil {
		t.Fatalf("Repoint: %v", err)
	}
}
