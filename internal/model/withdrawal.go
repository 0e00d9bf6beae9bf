package model

// WithdrawalAmount is the user's input for one LP component before it is resolved
// against the balance.
type WithdrawalAmount struct {
	Percentage    int    `json:"percentage"`
	Amount        string `json:"amount"`
	UsePercentage bool   `json:"use_percentage"`
}

// WithdrawalRequest holds the four independent components of a removal.
type WithdrawalRequest struct {
	Long0  WithdrawalAmount `json:"long0"`
	Short0 WithdrawalAmount `json:"short0"`
	Long1  WithdrawalAmount `json:"long1"`
	Short1 WithdrawalAmount `json:"short1"`
}

// Components returns the request in (long0, short0, long1, short1) order.
func (r WithdrawalRequest) Components() [4]WithdrawalAmount {
	return [4]WithdrawalAmount{r.Long0, r.Short0, r.Long1, r.Short1}
}
