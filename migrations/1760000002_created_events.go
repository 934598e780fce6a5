package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")

		collection.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      200,
		})
		collection.Fields.Add(&core.TextField{
			Name: "venue",
			Max:  200,
		})
		collection.Fields.Add(&core.DateField{
			Name:     "starts_at",
			Required: true,
		})
		collection.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"draft", "published", "closed"},
		})
		collection.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		collection.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})

		collection.ListRule = types.Pointer("status = 'published'")
		collection.ViewRule = types.Pointer("status = 'published'")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
