package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/budget_backend/appctx"
	"github.com/sirupsen/logrus"
)

var (
	ContextKeyBusinessId    = appctx.ContextKeyBusinessId
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBusinessId)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return appctx.Set(ctx, ContextKeyBusinessId, businessId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// LogFieldsFromContext pulls the request-scoped identifiers into structured
// log fields, so lifecycle log lines can be traced back to a request and a
// planner.
func LogFieldsFromContext(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if cid, ok := GetCorrelationIdFromContext(ctx); ok && cid != "" {
		fields["correlation_id"] = cid
	}
	if userId, ok := GetUserIdFromContext(ctx); ok {
		fields["user_id"] = userId
	}
	if userName, ok := GetUserNameFromContext(ctx); ok && userName != "" {
		fields["user_name"] = userName
	}
	return fields
}
