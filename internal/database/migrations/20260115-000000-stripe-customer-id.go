package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260115-000000",
		Description: "Add encrypted stripe customer id to users",
		Up: []string{
			`ALTER TABLE users ADD COLUMN stripe_customer_id_encrypted TEXT`,
		},
	})
}
