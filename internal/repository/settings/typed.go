package settings

import (
	"context"
	"errors"
	"fmt"
)

// Float returns the number stored under key, or fallback when it is missing.
func Float(ctx context.Context, s Store, key string, fallback float64) (float64, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}

		return fallback, err
	}

	switch value := raw.(type) {
	case float64:
		return value, nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	default:
		return fallback, fmt.Errorf("%w: %s is %T", ErrWrongType, key, raw)
	}
}

// Int returns the integer stored under key, or fallback when it is missing.
// JSON numbers decode as float64, so the value is truncated.
func Int(ctx context.Context, s Store, key string, fallback int) (int, error) {
	value, err := Float(ctx, s, key, float64(fallback))
	if err != nil {
		return fallback, err
	}

	return int(value), nil
}

// String returns the string stored under key, or fallback when it is missing.
func String(ctx context.Context, s Store, key, fallback string) (string, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}

		return fallback, err
	}

	value, ok := raw.(string)
	if !ok {
		return fallback, fmt.Errorf("%w: %s is %T", ErrWrongType, key, raw)
	}

	return value, nil
}
