package fakeapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/fuowallet/internal/models"
)

// Asset wallet transfers move
const AssetCode = "FUC"

func (s *Server) findLocked(identifier string) *account {
	for _, a := range s.accounts {
		if a.profile.Username == identifier || strings.EqualFold(a.profile.Email, identifier) {
			return a
		}
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Identifier string `json:"identifier" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}
	type LoginResponse struct {
		Token   string         `json:"token"`
		Profile models.Profile `json:"profile"`
	}

	data, err := bindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	s.mu.Lock()
	a := s.findLocked(data.Identifier)
	s.mu.Unlock()

	if a == nil || comparePassword(a.password, data.Password) != nil {
		renderMessage(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.issueToken(a)
	if err != nil {
		renderMessage(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	renderJSON(w, LoginResponse{Token: token, Profile: a.profile})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Username  string `json:"username" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"firstName" validate:"required"`
		LastName  string `json:"lastName" validate:"required"`
		Password  string `json:"password" validate:"required,min=6"`
	}

	data, err := bindAndValidate[SignupRequest](w, r)
	if err != nil {
		return
	}

	hash, err := hashPassword(data.Password)
	if err != nil {
		renderMessage(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(data.Username) != nil || s.findLocked(data.Email) != nil {
		jsonWithStatus(w, ErrorResponse{Error: "User already exists"}, http.StatusConflict)
		return
	}

	s.addAccountLocked(hash, models.Profile{
		Username:  data.Username,
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	})

	jsonWithStatus(w, ErrorResponse{Message: "User registered successfully"}, http.StatusCreated)
}

func (s *Server) handleSendResetEmail(w http.ResponseWriter, r *http.Request) {
	type ResetEmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	data, err := bindAndValidate[ResetEmailRequest](w, r)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(data.Email)
	if a == nil {
		jsonWithStatus(w, ErrorResponse{Error: "User not found"}, http.StatusNotFound)
		return
	}

	s.resetTokens[uuid.NewString()] = a.id
	renderJSON(w, ErrorResponse{Message: "Password reset email sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	type ResetPasswordRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=6"`
	}

	data, err := bindAndValidate[ResetPasswordRequest](w, r)
	if err != nil {
		return
	}

	hash, err := hashPassword(data.NewPassword)
	if err != nil {
		renderMessage(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.resetTokens[data.Token]
	if !ok {
		jsonWithStatus(w, ErrorResponse{Error: "Invalid or expired token"}, http.StatusBadRequest)
		return
	}

	delete(s.resetTokens, data.Token)
	s.accounts[id].password = hash

	renderJSON(w, ErrorResponse{Message: "Password has been reset"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, userFromContext(r.Context()).profile)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	type BalanceResponse struct {
		Balances []models.Balance `json:"balances"`
	}

	s.mu.Lock()
	balances, ok := s.balances[r.PathValue("publicKey")]
	s.mu.Unlock()

	if !ok {
		renderMessage(w, "Account not found", http.StatusNotFound)
		return
	}

	renderJSON(w, BalanceResponse{Balances: balances})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	type TransferRequest struct {
		Receiver string          `json:"receiverPublicKey" validate:"required"`
		Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	}
	type TransferResponse struct {
		Message string `json:"message"`
		Hash    string `json:"hash"`
	}

	data, err := bindAndValidate[TransferRequest](w, r)
	if err != nil {
		return
	}

	sender := userFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[data.Receiver]; !ok {
		renderString(w, "The receiver account does not exist!", http.StatusBadRequest)
		return
	}

	from := s.assetLocked(sender.profile.PublicKey)
	if from == nil || from.Amount.LessThan(data.Amount) {
		renderMessage(w, "Insufficient balance", http.StatusBadRequest)
		return
	}

	to := s.assetLocked(data.Receiver)
	if to == nil {
		s.balances[data.Receiver] = append(s.balances[data.Receiver], models.Balance{
			AssetType: models.AssetTypeCreditAlphanum4,
			AssetCode: AssetCode,
		})
		to = s.assetLocked(data.Receiver)
	}

	from.Amount = from.Amount.Sub(data.Amount)
	to.Amount = to.Amount.Add(data.Amount)

	hash := strings.ReplaceAll(uuid.NewString(), "-", "")
	tx := models.Transaction{
		ID:          uuid.NewString(),
		From:        sender.profile.PublicKey,
		To:          data.Receiver,
		AssetCode:   AssetCode,
		AssetAmount: data.Amount,
		LedgerTxID:  hash,
		CreatedAt:   s.now().UTC(),
	}
	s.transactions[sender.id] = append(s.transactions[sender.id], tx)
	for _, a := range s.accounts {
		if a.profile.PublicKey == data.Receiver && a.id != sender.id {
			s.transactions[a.id] = append(s.transactions[a.id], tx)
		}
	}

	renderJSON(w, TransferResponse{Message: "Transfer successful", Hash: hash})
}

// assetLocked returns transferable asset balance of the account
func (s *Server) assetLocked(publicKey string) *models.Balance {
	balances := s.balances[publicKey]
	for i := range balances {
		if balances[i].AssetCode == AssetCode {
			return &balances[i]
		}
	}
	return nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if r.PathValue("userId") != user.id {
		renderMessage(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.mu.Lock()
	txs := append([]models.Transaction{}, s.transactions[user.id]...)
	s.mu.Unlock()

	renderJSON(w, txs)
}

func (s *Server) handlePaymentIntent(w http.ResponseWriter, r *http.Request) {
	type PaymentIntentRequest struct {
		Amount decimal.Decimal `json:"amount" validate:"gte=1"`
	}
	type PaymentIntentResponse struct {
		Status  bool                 `json:"status"`
		Message string               `json:"message"`
		Data    models.PaymentIntent `json:"data"`
	}

	_, err := bindAndValidate[PaymentIntentRequest](w, r)
	if err != nil {
		return
	}

	reference := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	renderJSON(w, PaymentIntentResponse{
		Status:  true,
		Message: "Authorization URL created",
		Data: models.PaymentIntent{
			AuthorizationURL: "https://checkout.paystack.com/" + reference,
			AccessCode:       reference,
			Reference:        reference,
		},
	})
}
