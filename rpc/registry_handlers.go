package rpc

import (
	"encoding/hex"
	"net/http"
)

type assetMintParams struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner"`
	URI    string `json:"uri"`
}

type assetMintResult struct {
	AssetID  uint64 `json:"assetId"`
	Owner    string `json:"owner"`
	MetaHash string `json:"metaHash"`
}

func (s *Server) handleAssetMint(w http.ResponseWriter, req *RPCRequest) {
	var params assetMintParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner := caller
	if params.Owner != "" {
		if owner, err = parseAddress(params.Owner); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	asset, err := s.assets.Mint(caller, owner, params.URI)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, assetMintResult{
		AssetID:  asset.ID,
		Owner:    formatAddress(asset.Owner),
		MetaHash: hex.EncodeToString(asset.MetaHash[:]),
	})
}

func (s *Server) handleAssetOwnerOf(w http.ResponseWriter, req *RPCRequest) {
	var params assetIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	owner, err := s.assets.OwnerOf(params.AssetID)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAddress(owner))
}
