package domain

const (
	RoleFarmer   = "farmer"
	RoleConsumer = "consumer"
)

type User struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Phone    string `db:"phone" json:"phone"`
	ImageURL string `db:"image_url" json:"image_url"`
	Role     string `db:"role" json:"role"`
	Hash     string `db:"password_hash" json:"-"`
}
