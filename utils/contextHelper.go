package utils

import (
	"context"

	"bitbucket.org/lawdesk/crm_backend/appctx"
)

var (
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyClientKey     = appctx.ContextKeyClientKey
	ContextKeyTimezone      = appctx.ContextKeyTimezone
)

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetClientKeyFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyClientKey)
}

func GetTimezoneFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyTimezone)
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

func SetClientKeyInContext(ctx context.Context, clientKey string) context.Context {
	return appctx.Set(ctx, ContextKeyClientKey, clientKey)
}

func SetTimezoneInContext(ctx context.Context, timezone string) context.Context {
	return appctx.Set(ctx, ContextKeyTimezone, timezone)
}
