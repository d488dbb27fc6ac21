package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "badgehub/pkg/domain-errors"
)

func TestDuplicateError(t *testing.T) {
	prior := &Checkin{CheckinTime: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), Location: "Gate 1"}
	err := error(NewDuplicateError(prior))

	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateCheckin))
	assert.True(t, dErrors.Retryable(err))

	var dup *DuplicateError
	assert.True(t, errors.As(err, &dup))
	assert.Same(t, prior, dup.Prior)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, Offset: 10}, Page{Limit: 10_000, Offset: 10}.Normalize())
	assert.Equal(t, Page{Limit: 5}, Page{Limit: 5, Offset: -3}.Normalize())
}
