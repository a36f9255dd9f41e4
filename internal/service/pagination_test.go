package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	require.Equal(t, 1, page)
	require.Equal(t, 20, limit)

	page, limit = NormalizePage(-3, 1000)
	require.Equal(t, 1, page)
	require.Equal(t, 100, limit)

	page, limit = NormalizePage(7, 50)
	require.Equal(t, 7, page)
	require.Equal(t, 50, limit)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 45, p.Total)

	p = NewPagination(1, 20, 0)
	require.Zero(t, p.TotalPages)

	p = NewPagination(1, 20, 20)
	require.Equal(t, 1, p.TotalPages)
}
