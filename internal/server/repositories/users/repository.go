package users

import (
	"context"

	"github.com/dmitrijs2005/winklink/internal/server/models"
)

// Field names a user attribute that can be probed for existence.
type Field string

const (
	FieldSerialNumber Field = "serial_number"
	FieldEmail        Field = "email"
	FieldOwnerName    Field = "owner_name"
	FieldDeviceName   Field = "device_name"
	FieldIdentityID   Field = "identity_id"
)

// columns whitelists the SQL column behind each Field.
var columns = map[Field]string{
	FieldSerialNumber: "serial_number",
	FieldEmail:        "email",
	FieldOwnerName:    "device_owner",
	FieldDeviceName:   "device_name",
	FieldIdentityID:   "uuid",
}

// Column returns the column backing f.
func (f Field) Column() (string, bool) {
	c, ok := columns[f]
	return c, ok
}

// FieldForColumn maps a column name back to its Field.
func FieldForColumn(column string) (Field, bool) {
	for f, c := range columns {
		if c == column {
			return f, true
		}
	}
	return "", false
}

// UniqueColumns are the columns guarded by unique constraints.
var UniqueColumns = []string{"serial_number", "email", "device_owner", "uuid"}

type Repository interface {
	// Insert writes identity, serial number, email and creation time.
	Insert(ctx context.Context, user *models.User) error
	// UpdateCredentials sets owner name and password hash of identityID.
	UpdateCredentials(ctx context.Context, identityID, ownerName, passwordHash string) error
	// UpdateDeviceName sets the device name of identityID.
	UpdateDeviceName(ctx context.Context, identityID, deviceName string) error
	Exists(ctx context.Context, field Field, value string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBySerialNumber(ctx context.Context, serialNumber string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}
