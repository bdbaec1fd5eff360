package rpc

import (
	"net/http"

	"nftmarket/native/market"
)

type listItemParams struct {
	Caller   string `json:"caller"`
	AssetID  uint64 `json:"assetId"`
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
}

type buyItemParams struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"assetId"`
	Value   string `json:"value,omitempty"`
}

type assetActorParams struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"assetId"`
}

type assetIDParams struct {
	AssetID uint64 `json:"assetId"`
}

type listAuctionParams struct {
	Caller        string `json:"caller"`
	AssetID       uint64 `json:"assetId"`
	StartingPrice string `json:"startingPrice"`
	MinStep       string `json:"minStep"`
	Currency      string `json:"currency,omitempty"`
}

type makeBidParams struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"assetId"`
	Amount  string `json:"amount"`
	Value   string `json:"value,omitempty"`
}

type listingJSON struct {
	AssetID   uint64 `json:"assetId"`
	Seller    string `json:"seller"`
	Currency  string `json:"currency"`
	Price     string `json:"price"`
	CreatedAt int64  `json:"createdAt"`
}

type auctionJSON struct {
	AssetID       uint64  `json:"assetId"`
	Seller        string  `json:"seller"`
	Currency      string  `json:"currency"`
	CurrentBid    string  `json:"currentBid"`
	MinStep       string  `json:"minStep"`
	BidCount      uint32  `json:"bidCount"`
	HighestBidder *string `json:"highestBidder,omitempty"`
	StartTime     int64   `json:"startTime"`
	EndTime       int64   `json:"endTime"`
}

// parseCurrency resolves the rail selector: an empty string or "native"
// selects the native rail, anything else must be a token address.
func parseCurrency(value string) (market.Currency, error) {
	if value == "" || value == "native" {
		return market.NativeCurrency(), nil
	}
	token, err := parseAddress(value)
	if err != nil {
		return market.Currency{}, err
	}
	return market.TokenCurrency(token), nil
}

func newListingJSON(l *market.Listing) listingJSON {
	return listingJSON{
		AssetID:   l.AssetID,
		Seller:    formatAddress(l.Seller),
		Currency:  l.Currency.String(),
		Price:     l.Price.String(),
		CreatedAt: l.CreatedAt,
	}
}

func newAuctionJSON(a *market.Auction) auctionJSON {
	out := auctionJSON{
		AssetID:    a.AssetID,
		Seller:     formatAddress(a.Seller),
		Currency:   a.Currency.String(),
		CurrentBid: a.CurrentBid.String(),
		MinStep:    a.MinStep.String(),
		BidCount:   a.BidCount,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
	}
	if a.BidCount > 0 {
		bidder := formatAddress(a.HighestBidder)
		out.HighestBidder = &bidder
	}
	return out
}

func (s *Server) handleListItem(w http.ResponseWriter, req *RPCRequest) {
	var params listItemParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	listing, err := s.market.ListItem(caller, params.AssetID, price, currency)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.Listings.Inc()
	writeResult(w, req.ID, newListingJSON(listing))
}

func (s *Server) handleBuyItem(w http.ResponseWriter, req *RPCRequest) {
	var params buyItemParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseOptionalBigInt(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.BuyItem(caller, params.AssetID, value); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.Sales.Inc()
	writeResult(w, req.ID, true)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, req *RPCRequest) {
	var params assetActorParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.CancelListing(caller, params.AssetID); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.ListingsCancelled.Inc()
	writeResult(w, req.ID, true)
}

func (s *Server) handleListItemOnAuction(w http.ResponseWriter, req *RPCRequest) {
	var params listAuctionParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.StartingPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	step, err := parsePositiveBigInt(params.MinStep)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	auction, err := s.market.ListItemOnAuction(caller, params.AssetID, price, step, currency)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.Auctions.Inc()
	writeResult(w, req.ID, newAuctionJSON(auction))
}

func (s *Server) handleMakeBid(w http.ResponseWriter, req *RPCRequest) {
	var params makeBidParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseOptionalBigInt(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.MakeBid(caller, params.AssetID, amount, value); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.Bids.Inc()
	writeResult(w, req.ID, true)
}

func (s *Server) handleFinishAuction(w http.ResponseWriter, req *RPCRequest) {
	var params assetIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.market.FinishAuction(params.AssetID); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.AuctionsFinished.Inc()
	writeResult(w, req.ID, true)
}

func (s *Server) handleCancelAuction(w http.ResponseWriter, req *RPCRequest) {
	var params assetActorParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.CancelAuction(caller, params.AssetID); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	s.metrics.AuctionsCancelled.Inc()
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetAuctionPrice(w http.ResponseWriter, req *RPCRequest) {
	var params assetIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	price, err := s.market.ItemCurrentAuctionPrice(params.AssetID)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, price.String())
}

func (s *Server) handleGetListing(w http.ResponseWriter, req *RPCRequest) {
	var params assetIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	listing, ok := s.market.Listing(params.AssetID)
	if !ok {
		s.writeEngineError(w, req, market.ErrNotSelling)
		return
	}
	writeResult(w, req.ID, newListingJSON(listing))
}

func (s *Server) handleGetAuction(w http.ResponseWriter, req *RPCRequest) {
	var params assetIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	auction, ok := s.market.Auction(params.AssetID)
	if !ok {
		s.writeEngineError(w, req, market.ErrAuctionNotActive)
		return
	}
	writeResult(w, req.ID, newAuctionJSON(auction))
}
