package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("access_passwords")
		collection.Fields.Add(&core.TextField{Name: "label", Required: true, Max: 100})
		collection.Fields.Add(&core.TextField{Name: "password_hash", Required: true, Hidden: true})
		collection.Fields.Add(&core.BoolField{Name: "active"})
		collection.Fields.Add(&core.NumberField{Name: "uses", OnlyInt: true, Min: types.Pointer(0.0)})
		collection.Fields.Add(&core.TextField{Name: "created_by", Max: 64})
		collection.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		collection.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("access_passwords")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
