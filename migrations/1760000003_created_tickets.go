package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

var ticketStatuses = []string{"pending", "pending_verification", "paid", "rejected"}

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		// booking_groups
		groups := core.NewBaseCollection("booking_groups")
		groups.Fields.Add(&core.RelationField{
			Name:         "owner",
			CollectionId: users.Id,
			Required:     true,
			MaxSelect:    1,
		})
		groups.Fields.Add(&core.SelectField{
			Name:      "ticket_type",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"duo", "quad"},
		})
		groups.Fields.Add(&core.NumberField{Name: "amount", Min: types.Pointer(0.0)})
		groups.Fields.Add(&core.NumberField{Name: "party_size", OnlyInt: true, Min: types.Pointer(2.0), Max: types.Pointer(4.0)})
		groups.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    ticketStatuses,
		})
		groups.Fields.Add(&core.TextField{Name: "payment_ref", Max: 120})
		groups.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		groups.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})

		groups.ListRule = types.Pointer("owner = @request.auth.id")
		groups.ViewRule = types.Pointer("owner = @request.auth.id")

		if err := app.Save(groups); err != nil {
			return err
		}

		// tickets
		tickets := core.NewBaseCollection("tickets")
		tickets.Fields.Add(&core.RelationField{
			Name:         "owner",
			CollectionId: users.Id,
			Required:     true,
			MaxSelect:    1,
		})
		tickets.Fields.Add(&core.RelationField{
			Name:         "booking_group",
			CollectionId: groups.Id,
			MaxSelect:    1,
		})
		tickets.Fields.Add(&core.TextField{Name: "holder_name", Required: true, Max: 120})
		tickets.Fields.Add(&core.EmailField{Name: "email"})
		tickets.Fields.Add(&core.SelectField{
			Name:      "ticket_type",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"solo", "duo", "quad"},
		})
		tickets.Fields.Add(&core.NumberField{Name: "amount", Min: types.Pointer(0.0)})
		tickets.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    ticketStatuses,
		})
		tickets.Fields.Add(&core.TextField{Name: "secret", Hidden: true, Max: 64})
		tickets.Fields.Add(&core.TextField{Name: "payment_ref", Max: 120})
		tickets.Fields.Add(&core.FileField{
			Name:      "payment_proof",
			MaxSelect: 1,
			MaxSize:   5 << 20,
			MimeTypes: []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
			Protected: true,
		})
		tickets.Fields.Add(&core.TextField{Name: "reject_reason", Max: 500})
		tickets.Fields.Add(&core.TextField{Name: "decided_by", Max: 64})
		tickets.Fields.Add(&core.DateField{Name: "decided_at"})
		tickets.Fields.Add(&core.DateField{Name: "band_issued_at"})
		tickets.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		tickets.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})

		tickets.AddIndex("idx_tickets_secret", true, "secret", "secret != ''")
		tickets.AddIndex("idx_tickets_group", false, "booking_group", "")
		tickets.AddIndex("idx_tickets_owner", false, "owner", "")
		tickets.AddIndex("idx_tickets_status", false, "status", "")

		// bookings are created through /api/v1/tickets only; owners may still upload proof.
		// admins can view so signed proof file links resolve for them.
		tickets.ListRule = types.Pointer("owner = @request.auth.id")
		tickets.ViewRule = types.Pointer("owner = @request.auth.id || @request.auth.collectionName = 'admins'")
		tickets.CreateRule = nil
		tickets.UpdateRule = types.Pointer("owner = @request.auth.id")

		return app.Save(tickets)
	}, func(app core.App) error {
		for _, name := range []string{"tickets", "booking_groups"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
