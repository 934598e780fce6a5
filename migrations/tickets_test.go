package migrations

import (
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigratedApp(t *testing.T) core.App {
	t.Helper()

	app := core.NewBaseApp(core.BaseAppConfig{DataDir: t.TempDir()})
	require.NoError(t, app.Bootstrap())
	require.NoError(t, app.RunAllMigrations())
	t.Cleanup(func() { _ = app.ResetBootstrapState() })

	return app
}

func newAuthRecord(t *testing.T, app core.App, collection, email string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	require.NoError(t, err)

	record := core.NewRecord(col)
	record.SetEmail(email)
	record.SetPassword("correct-horse-1")
	for k, v := range fields {
		record.Set(k, v)
	}
	require.NoError(t, app.Save(record))
	return record
}

func TestTicketRules(t *testing.T) {
	app := newMigratedApp(t)

	owner := newAuthRecord(t, app, "users", "owner@example.com", nil)
	stranger := newAuthRecord(t, app, "users", "stranger@example.com", nil)
	admin := newAuthRecord(t, app, "admins", "gate@example.com", map[string]any{"name": "Gate", "role": "admin"})

	tickets, err := app.FindCollectionByNameOrId("tickets")
	require.NoError(t, err)

	ticket := core.NewRecord(tickets)
	ticket.Set("owner", owner.Id)
	ticket.Set("holder_name", "Owner")
	ticket.Set("ticket_type", "solo")
	ticket.Set("amount", 150000)
	ticket.Set("status", "pending_verification")
	require.NoError(t, app.Save(ticket))

	t.Run("collection create is superuser only", func(t *testing.T) {
		assert.Nil(t, tickets.CreateRule)
	})

	viewTests := []struct {
		name string
		auth *core.Record
		want bool
	}{
		{"owner", owner, true},
		{"admin signing proof links", admin, true},
		{"another participant", stranger, false},
	}

	for _, tt := range viewTests {
		t.Run("view as "+tt.name, func(t *testing.T) {
			ok, err := app.CanAccessRecord(ticket, &core.RequestInfo{Auth: tt.auth}, tickets.ViewRule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
