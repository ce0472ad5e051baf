package codec

import (
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
)

// DeliveryRecord is the wire form of a delivery. Timestamps are Unix
// milliseconds; optional text fields are omitted when empty.
type DeliveryRecord struct {
	ID              int64  `json:"id"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	Deadline        string `json:"deadline"`
	Requester       string `json:"requester"`
	Carrier         string `json:"carrier,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
	Distance        string `json:"distance,omitempty"`
	EstimatedTime   string `json:"estimatedTime,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

type UserRecord struct {
	ID        int64  `json:"id"`
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type TransactionRecord struct {
	ID              int64  `json:"id"`
	DeliveryID      int64  `json:"deliveryId"`
	TransactionHash string `json:"transactionHash"`
	TransactionType string `json:"transactionType"`
	BlockNumber     *int64 `json:"blockNumber,omitempty"`
	GasUsed         *int64 `json:"gasUsed,omitempty"`
	Status          string `json:"status"`
	CreatedAt       int64  `json:"createdAt"`
}

// NextIDs are the id counters of a store: the id the next insert receives.
type NextIDs struct {
	DeliveryID    int64 `json:"deliveryId"`
	UserID        int64 `json:"userId"`
	TransactionID int64 `json:"transactionId"`
}

// InitialNextIDs is the counter state of an empty store.
func InitialNextIDs() NextIDs {
	return NextIDs{DeliveryID: 1, UserID: 1, TransactionID: 1}
}

func FromDelivery(d *delivery.Delivery) DeliveryRecord {
	s := d.State()
	return DeliveryRecord{
		ID:              s.ID,
		Origin:          s.Origin,
		Destination:     s.Destination,
		Description:     s.Description,
		Amount:          s.Amount,
		Status:          string(s.Status),
		Deadline:        s.Deadline,
		Requester:       s.Requester,
		Carrier:         s.Carrier,
		CreatedAt:       s.CreatedAt.UnixMilli(),
		UpdatedAt:       s.UpdatedAt.UnixMilli(),
		Distance:        s.Distance,
		EstimatedTime:   s.EstimatedTime,
		ContractAddress: s.ContractAddress,
		TransactionHash: s.TransactionHash,
	}
}

func (r DeliveryRecord) ToDomain() (*delivery.Delivery, error) {
	return delivery.Restore(delivery.State{
		ID:              r.ID,
		Origin:          r.Origin,
		Destination:     r.Destination,
		Description:     r.Description,
		Amount:          r.Amount,
		Status:          delivery.Status(r.Status),
		Deadline:        r.Deadline,
		Requester:       r.Requester,
		Carrier:         r.Carrier,
		Distance:        r.Distance,
		EstimatedTime:   r.EstimatedTime,
		ContractAddress: r.ContractAddress,
		TransactionHash: r.TransactionHash,
		CreatedAt:       time.UnixMilli(r.CreatedAt),
		UpdatedAt:       time.UnixMilli(r.UpdatedAt),
	})
}

func FromUser(u *user.User) UserRecord {
	return UserRecord{
		ID:        u.ID,
		Address:   u.Address.String(),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt.UnixMilli(),
		UpdatedAt: u.UpdatedAt.UnixMilli(),
	}
}

func (r UserRecord) ToDomain() (*user.User, error) {
	address, err := kernel.NewAddress(r.Address)
	if err != nil {
		return nil, err
	}
	u, err := user.New(r.ID, user.Draft{Address: address, Name: r.Name, Email: r.Email, Phone: r.Phone},
		time.UnixMilli(r.CreatedAt))
	if err != nil {
		return nil, err
	}
	u.UpdatedAt = kernel.Millis(time.UnixMilli(r.UpdatedAt))
	return u, nil
}

func FromTransaction(t *ledgertx.Transaction) TransactionRecord {
	c := t.Clone()
	return TransactionRecord{
		ID:              c.ID,
		DeliveryID:      c.DeliveryID,
		TransactionHash: c.TransactionHash,
		TransactionType: string(c.Type),
		BlockNumber:     c.BlockNumber,
		GasUsed:         c.GasUsed,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt.UnixMilli(),
	}
}

func (r TransactionRecord) ToDomain() (*ledgertx.Transaction, error) {
	return ledgertx.New(r.ID, ledgertx.Draft{
		DeliveryID:      r.DeliveryID,
		TransactionHash: r.TransactionHash,
		Type:            ledgertx.Type(r.TransactionType),
		BlockNumber:     r.BlockNumber,
		GasUsed:         r.GasUsed,
		Status:          ledgertx.Status(r.Status),
	}, time.UnixMilli(r.CreatedAt))
}
