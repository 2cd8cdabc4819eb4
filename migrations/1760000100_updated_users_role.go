package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		// empty means a plain purchaser
		users.Fields.Add(&core.SelectField{
			Name:      "role",
			MaxSelect: 1,
			Values:    []string{"user", "vendor", "admin"},
		})
		// users may not promote themselves
		users.UpdateRule = types.Pointer("id = @request.auth.id && @request.body.role:isset = false")

		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		users.Fields.RemoveByName("role")
		users.UpdateRule = types.Pointer("id = @request.auth.id")
		return app.Save(users)
	})
}
