package utils_test

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
)

func TestLogFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = utils.SetCorrelationIdInContext(ctx, "cid-123")
	ctx = utils.SetUserIdInContext(ctx, 42)
	ctx = utils.SetUserNameInContext(ctx, "aye chan")

	fields := utils.LogFieldsFromContext(ctx)
	if fields["correlation_id"] != "cid-123" {
		t.Fatalf("expected correlation id in log fields, got %v", fields["correlation_id"])
	}
	if fields["user_id"] != 42 {
		t.Fatalf("expected user id in log fields, got %v", fields["user_id"])
	}
	if fields["user_name"] != "aye chan" {
		t.Fatalf("expected user name in log fields, got %v", fields["user_name"])
	}
}

func TestLogFieldsFromContextEmpty(t *testing.T) {
	fields := utils.LogFieldsFromContext(context.Background())
	if len(fields) != 0 {
		t.Fatalf("empty context must yield no log fields, got %v", fields)
	}
}
