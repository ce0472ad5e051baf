package http

import (
	"strconv"
	"strings"
	"time"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/application/usecases/queries"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/pkg/errs"
)

type NewDeliveryRequest struct {
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	Description      string    `json:"description"`
	Amount           string    `json:"amount"`
	PickupDeadline   time.Time `json:"pickupDeadline"`
	DeliveryDeadline time.Time `json:"deliveryDeadline"`
	Requester        string    `json:"requester"`
	Distance         string    `json:"distance"`
	EstimatedTime    string    `json:"estimatedTime"`
}

func (r NewDeliveryRequest) toInput() commands.CreateDeliveryInput {
	return commands.CreateDeliveryInput{
		Origin:           r.Origin,
		Destination:      r.Destination,
		Description:      r.Description,
		Amount:           r.Amount,
		PickupDeadline:   r.PickupDeadline,
		DeliveryDeadline: r.DeliveryDeadline,
		Requester:        r.Requester,
		Distance:         r.Distance,
		EstimatedTime:    r.EstimatedTime,
	}
}

type DeliveryPatchRequest struct {
	Origin          *string `json:"origin"`
	Destination     *string `json:"destination"`
	Description     *string `json:"description"`
	Amount          *string `json:"amount"`
	Status          *string `json:"status"`
	Deadline        *string `json:"deadline"`
	Requester       *string `json:"requester"`
	Carrier         *string `json:"carrier"`
	Distance        *string `json:"distance"`
	EstimatedTime   *string `json:"estimatedTime"`
	ContractAddress *string `json:"contractAddress"`
	TransactionHash *string `json:"transactionHash"`
}

// toPatch parses the typed fields. An empty carrier removes the carrier.
func (r DeliveryPatchRequest) toPatch() (delivery.Patch, error) {
	p := delivery.Patch{
		Origin:          r.Origin,
		Destination:     r.Destination,
		Description:     r.Description,
		Deadline:        r.Deadline,
		Distance:        r.Distance,
		EstimatedTime:   r.EstimatedTime,
		ContractAddress: r.ContractAddress,
		TransactionHash: r.TransactionHash,
	}
	if r.Amount != nil {
		amount, err := kernel.NewAmount(*r.Amount)
		if err != nil {
			return delivery.Patch{}, err
		}
		p.Amount = &amount
	}
	if r.Status != nil {
		status, err := delivery.ParseStatus(*r.Status)
		if err != nil {
			return delivery.Patch{}, err
		}
		p.Status = &status
	}
	if r.Requester != nil {
		requester, err := kernel.NewAddress(*r.Requester)
		if err != nil {
			return delivery.Patch{}, err
		}
		p.Requester = &requester
	}
	if r.Carrier != nil {
		var carrier kernel.Address
		if strings.TrimSpace(*r.Carrier) != "" {
			var err error
			if carrier, err = kernel.NewAddress(*r.Carrier); err != nil {
				return delivery.Patch{}, err
			}
		}
		p.Carrier = &carrier
	}
	return p, nil
}

type TransitionRequest struct {
	Actor string `json:"actor"`
}

type DeliveryResponse struct {
	ID              int64     `json:"id"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Description     string    `json:"description"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	Deadline        string    `json:"deadline"`
	Requester       string    `json:"requester"`
	Carrier         string    `json:"carrier,omitempty"`
	Distance        string    `json:"distance,omitempty"`
	EstimatedTime   string    `json:"estimatedTime,omitempty"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toDeliveryResponse(d *delivery.Delivery) DeliveryResponse {
	carrier, _ := d.Carrier()
	return DeliveryResponse{
		ID:              d.ID(),
		Origin:          d.Origin(),
		Destination:     d.Destination(),
		Description:     d.Description(),
		Amount:          d.Amount().String(),
		Status:          string(d.Status()),
		Deadline:        d.Deadline(),
		Requester:       d.Requester().String(),
		Carrier:         carrier.String(),
		Distance:        d.Distance(),
		EstimatedTime:   d.EstimatedTime(),
		ContractAddress: d.ContractAddress(),
		TransactionHash: d.TransactionHash(),
		CreatedAt:       d.CreatedAt(),
		UpdatedAt:       d.UpdatedAt(),
	}
}

func toDeliveryResponses(ds []*delivery.Delivery) []DeliveryResponse {
	out := make([]DeliveryResponse, len(ds))
	for i, d := range ds {
		out[i] = toDeliveryResponse(d)
	}
	return out
}

type TransactionResponse struct {
	ID              int64     `json:"id"`
	DeliveryID      int64     `json:"deliveryId"`
	TransactionHash string    `json:"transactionHash"`
	Type            string    `json:"type"`
	BlockNumber     *int64    `json:"blockNumber,omitempty"`
	GasUsed         *int64    `json:"gasUsed,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toTransactionResponses(txs []*ledgertx.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = TransactionResponse{
			ID:              tx.ID,
			DeliveryID:      tx.DeliveryID,
			TransactionHash: tx.TransactionHash,
			Type:            string(tx.Type),
			BlockNumber:     tx.BlockNumber,
			GasUsed:         tx.GasUsed,
			Status:          string(tx.Status),
			CreatedAt:       tx.CreatedAt,
		}
	}
	return out
}

type NewUserRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Address:   u.Address.String(),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

type StoreStatsResponse struct {
	Backend       string         `json:"backend"`
	Deliveries    int            `json:"deliveries"`
	Users         int            `json:"users"`
	Transactions  int            `json:"transactions"`
	ByStatus      map[string]int `json:"byStatus"`
	Escrowed      string         `json:"escrowed"`
	Released      string         `json:"released"`
	UsedBytes     int64          `json:"usedBytes"`
	CapacityBytes int64          `json:"capacityBytes"`
}

func toStoreStatsResponse(r queries.StoreReport) StoreStatsResponse {
	byStatus := make(map[string]int, len(r.Stats.ByStatus))
	for status, n := range r.Stats.ByStatus {
		byStatus[string(status)] = n
	}
	return StoreStatsResponse{
		Backend:       r.Stats.Backend,
		Deliveries:    r.Stats.Deliveries,
		Users:         r.Stats.Users,
		Transactions:  r.Stats.Transactions,
		ByStatus:      byStatus,
		Escrowed:      r.Summary.Escrowed.String(),
		Released:      r.Summary.Released.String(),
		UsedBytes:     r.Stats.UsedBytes,
		CapacityBytes: r.Stats.CapacityBytes,
	}
}

type ReconcileResponse struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

func parseDeliveryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.NewValueIsInvalidErrorWithCause("delivery id", err)
	}
	if id <= 0 {
		return 0, errs.NewValueIsOutOfRangeError("delivery id", id, 1, "max int64")
	}
	return id, nil
}
