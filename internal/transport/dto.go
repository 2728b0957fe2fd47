package transport

// ProductRequest creates a product when ID is nil and merges into the
// existing one otherwise. Nil fields are left untouched.
type ProductRequest struct {
	ID          *int64  `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	Category    *string `json:"category,omitempty"`
	Status      *string `json:"status,omitempty"`
	IsPreOrder  *bool   `json:"isPreOrder,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

type BulkEditRequest struct {
	IDs   []int64        `json:"ids"`
	Patch ProductRequest `json:"patch"`
}

type CartItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type CheckoutRequest struct {
	FullName string     `json:"fullName"`
	Phone    string     `json:"phone"`
	Address  string     `json:"address"`
	Note     string     `json:"note"`
	Items    []CartItem `json:"items"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type CreateOrderRequest struct {
	Order map[string]any `json:"order"`
}

type DeleteOrderRequest struct {
	FirestoreID string `json:"firestoreId"`
}

type UpdateUserRequest struct {
	UserID  string         `json:"userId"`
	Updates map[string]any `json:"updates"`
}

type SyncLocalRequest struct {
	Products     []map[string]any `json:"products"`
	Orders       []map[string]any `json:"orders"`
	Reservations []map[string]any `json:"reservations"`
}

type ReservationRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Players   string `json:"players"`
	TableType string `json:"tableType"`
}

type ReservationPatch struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Date      *string `json:"date,omitempty"`
	Time      *string `json:"time,omitempty"`
	Players   *string `json:"players,omitempty"`
	TableType *string `json:"tableType,omitempty"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ExchangeRequest struct {
	IDToken string `json:"idToken"`
}

type ProfilePatch struct {
	Name         *string `json:"name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}
