package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("redemptions")
		collection.Fields.Add(&core.RelationField{
			Name:          "ticket",
			CollectionId:  tickets.Id,
			Required:      true,
			MaxSelect:     1,
			CascadeDelete: true,
		})
		collection.Fields.Add(&core.RelationField{
			Name:         "event",
			CollectionId: events.Id,
			Required:     true,
			MaxSelect:    1,
		})
		collection.Fields.Add(&core.TextField{Name: "scanned_by", Max: 64})
		collection.Fields.Add(&core.DateField{Name: "scanned_at", Required: true})
		collection.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})

		// one check-in per ticket per event
		collection.AddIndex("idx_redemptions_ticket_event", true, "ticket, event", "")
		collection.AddIndex("idx_redemptions_event", false, "event", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("redemptions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
