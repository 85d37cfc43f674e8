// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vchat-tui/internal/model"
)

// openTestKVs returns both backends so every test runs against each.
func openTestKVs(t *testing.T) map[string]KV {
	t.Helper()

	boltKV, err := OpenBolt(filepath.Join(t.TempDir(), "vchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltKV.Close() })

	return map[string]KV{
		"mem":  NewMemKV(),
		"bolt": boltKV,
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	for name, kv := range openTestKVs(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			require.NoError(t, s.Create("conv-1"))
			require.NoError(t, s.Append("conv-1", model.NewUserItem("hi")))

			// Second create must not duplicate or clear existing items.
			require.NoError(t, s.Create("conv-1"))

			conv, err := s.Load("conv-1")
			require.NoError(t, err)
			require.Equal(t, 1, conv.ItemCount())
		})
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	for name, kv := range openTestKVs(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			require.NoError(t, s.Append("conv-1",
				model.NewUserItem("prompt"),
				model.NewAssistantItem("Hello"),
			))
			require.NoError(t, s.Append("conv-1", model.NewVideoItem(model.VideoContent{
				Links:    []string{"https://youtu.be/abc12345678"},
				Language: "en",
				Titles:   []*string{nil},
			})))

			conv, err := s.Load("conv-1")
			require.NoError(t, err)
			require.Equal(t, 3, conv.ItemCount())
			require.Equal(t, model.RoleUser, conv.Items[0].Role)
			require.Equal(t, model.RoleAssistant, conv.Items[1].Role)
			require.Equal(t, model.RoleVideoAssistant, conv.Items[2].Role)
			require.Equal(t, "Hello", conv.Items[1].Content)
			require.NotNil(t, conv.Items[2].Video)
			require.Len(t, conv.Items[2].Video.Titles, 1)
			require.Nil(t, conv.Items[2].Video.Titles[0])
		})
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	s := New(NewMemKV())
	_, err := s.Load("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	for name, kv := range openTestKVs(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			require.NoError(t, s.Append("conv-1", model.NewUserItem("hi")))
			require.NoError(t, s.Remove("conv-1"))

			_, err := s.Load("conv-1")
			require.ErrorIs(t, err, ErrNotFound)

			// Removing again is still fine.
			require.NoError(t, s.Remove("conv-1"))
		})
	}
}

func TestListSortedByUpdateTime(t *testing.T) {
	s := New(NewMemKV())
	require.NoError(t, s.Append("old", model.NewUserItem("first")))
	require.NoError(t, s.Append("new", model.NewUserItem("second")))
	require.NoError(t, s.Append("old", model.NewAssistantItem("reply"))) // touches "old" again

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "old", metas[0].ID)
	require.Equal(t, "new", metas[1].ID)
}

func TestListSkipsMalformedRecords(t *testing.T) {
	kv := NewMemKV()
	s := New(kv)
	require.NoError(t, s.Append("good", model.NewUserItem("hi")))
	require.NoError(t, kv.Put("conversation:bad", []byte("{broken")))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "good", metas[0].ID)
}

func TestBoltSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vchat.db")

	kv, err := OpenBolt(path)
	require.NoError(t, err)
	s := New(kv)
	require.NoError(t, s.Append("conv-1", model.NewUserItem("persist me")))
	require.NoError(t, kv.Close())

	kv, err = OpenBolt(path)
	require.NoError(t, err)
	defer kv.Close()

	conv, err := New(kv).Load("conv-1")
	require.NoError(t, err)
	require.Equal(t, "persist me", conv.Items[0].Content)
}
