package common

import (
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/status-im/connector-bridge/logutils"
)

func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return reflect.ValueOf(i).IsNil()
	}
	return false
}

// LogOnPanic logs the recovered value with a stack trace and re-panics.
// Every goroutine spawned by the connector defers it.
func LogOnPanic() {
	if err := recover(); err != nil {
		logutils.ZapLogger().Error("panic in goroutine", zap.Any("error", err), zap.Stack("stacktrace"))
		panic(err)
	}
}

// NormalizeOrigin lowercases the scheme and host of an origin and strips a trailing slash,
// so "HTTPS://App.Example/" and "https://app.example" name the same dApp.
func NormalizeOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	origin = strings.TrimSuffix(origin, "/")
	return strings.ToLower(origin)
}

// IsExtensionOrigin reports whether an Origin header belongs to a browser extension or is
// absent, as it is for native clients. Web pages always send their own origin.
func IsExtensionOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	origin = strings.ToLower(origin)
	return strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://")
}
