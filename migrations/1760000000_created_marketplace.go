package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	vendorOwnsRecord = "@request.auth.role = 'vendor' && vendor_email = @request.auth.email"
	partyToBooking   = "@request.auth.id != '' && (user_email = @request.auth.email || vendor_email = @request.auth.email)"
)

func init() {
	m.Register(func(app core.App) error {
		tickets := core.NewBaseCollection("tickets")
		tickets.ListRule = types.Pointer("(verification_status = 'approved' && hide_for_fraud = false) || vendor_email = @request.auth.email")
		tickets.ViewRule = tickets.ListRule
		// new listings start unverified and unadvertised
		tickets.CreateRule = types.Pointer("@request.auth.role = 'vendor'" +
			" && @request.body.vendor_email = @request.auth.email" +
			" && @request.body.verification_status = 'pending'" +
			" && @request.body.advertise_status = 'hide'" +
			" && @request.body.hide_for_fraud:isset = false")
		// moderation fields only change through the admin endpoints
		tickets.UpdateRule = types.Pointer(vendorOwnsRecord +
			" && @request.body.vendor_email:isset = false" +
			" && @request.body.verification_status:isset = false" +
			" && @request.body.advertise_status:isset = false" +
			" && @request.body.hide_for_fraud:isset = false")
		tickets.DeleteRule = types.Pointer(vendorOwnsRecord)
		tickets.Fields.Add(
			&core.TextField{Name: "vendor_email", Required: true},
			&core.TextField{Name: "vendor_name"},
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "from_location"},
			&core.TextField{Name: "to_location"},
			&core.TextField{Name: "transport_type"},
			&core.DateField{Name: "departure"},
			&core.NumberField{Name: "price_per_unit", Min: types.Pointer(0.0)},
			&core.NumberField{Name: "quantity", OnlyInt: true},
			&core.SelectField{Name: "verification_status", MaxSelect: 1, Values: []string{"pending", "approved", "rejected"}},
			&core.SelectField{Name: "advertise_status", MaxSelect: 1, Values: []string{"show", "hide"}},
			&core.BoolField{Name: "hide_for_fraud"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		tickets.AddIndex("idx_tickets_vendor_email", false, "vendor_email", "")
		tickets.AddIndex("idx_tickets_advertise_status", false, "advertise_status", "")
		if err := app.Save(tickets); err != nil {
			return err
		}

		// bookings and transactions are written only by the service
		bookings := core.NewBaseCollection("bookings")
		bookings.ListRule = types.Pointer(partyToBooking)
		bookings.ViewRule = bookings.ListRule
		bookings.Fields.Add(
			&core.TextField{Name: "ticket_id", Required: true},
			&core.TextField{Name: "user_email", Required: true},
			&core.TextField{Name: "user_name"},
			&core.TextField{Name: "vendor_email", Required: true},
			&core.NumberField{Name: "quantity", OnlyInt: true, Min: types.Pointer(1.0)},
			&core.TextField{Name: "title"},
			&core.TextField{Name: "from_location"},
			&core.TextField{Name: "to_location"},
			&core.TextField{Name: "transport_type"},
			&core.DateField{Name: "departure"},
			&core.NumberField{Name: "price_per_unit", Min: types.Pointer(0.0)},
			&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{"pending", "paid", "rejected", "cancelled"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		bookings.AddIndex("idx_bookings_user_email", false, "user_email", "")
		bookings.AddIndex("idx_bookings_vendor_email", false, "vendor_email", "")
		if err := app.Save(bookings); err != nil {
			return err
		}

		transactions := core.NewBaseCollection("transactions")
		transactions.ListRule = types.Pointer(partyToBooking)
		transactions.ViewRule = transactions.ListRule
		transactions.Fields.Add(
			&core.TextField{Name: "session_id", Required: true},
			&core.TextField{Name: "booking_id", Required: true},
			&core.TextField{Name: "ticket_id", Required: true},
			&core.TextField{Name: "user_email"},
			&core.TextField{Name: "vendor_email"},
			&core.TextField{Name: "title"},
			&core.NumberField{Name: "quantity", OnlyInt: true},
			&core.NumberField{Name: "amount"},
			&core.TextField{Name: "currency"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		transactions.AddIndex("idx_transactions_session_id", true, "session_id", "")
		transactions.AddIndex("idx_transactions_vendor_email", false, "vendor_email", "")
		return app.Save(transactions)
	}, func(app core.App) error {
		for _, name := range []string{"transactions", "bookings", "tickets"} {
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
