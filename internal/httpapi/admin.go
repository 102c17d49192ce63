package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// ── Cards ────────────────────────────────────────────────────────────────────

func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.collections.Cards()))
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := s.collections.AddCard(r.Context(), req.UID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := s.collections.UpdateCard(r.Context(), pathParam(r, "uid"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.DeleteCard(r.Context(), pathParam(r, "uid")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Card deleted successfully"})
}

// ── Fingerprint users ────────────────────────────────────────────────────────

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.collections.Users()))
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req types.CreateFingerprintRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.collections.AddUser(r.Context(), req.Name, req.FingerprintID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// userID parses the {id} path parameter. A non-numeric id cannot name a user,
// so it is reported as not found.
func userID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(pathParam(r, "id"))
	if err != nil {
		return 0, service.ErrUserNotFound
	}
	return id, nil
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req types.UpdateFingerprintRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.collections.UpdateUser(r.Context(), id, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err == nil {
		err = s.collections.DeleteUser(r.Context(), id)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Fingerprint user deleted successfully"})
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.collections.RegisterUser(r.Context(), req.CardUID, req.FingerprintID, req.UserName, false)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ── Bluetooth ────────────────────────────────────────────────────────────────

func (s *Server) handleListBluetooth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.collections.BluetoothDevices()))
}

func (s *Server) handleAddBluetooth(w http.ResponseWriter, r *http.Request) {
	var req types.CreateBluetoothRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dev, err := s.collections.AddBluetooth(r.Context(), req.MAC, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) handleUpdateBluetooth(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateBluetoothRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dev, err := s.collections.UpdateBluetooth(r.Context(), pathParam(r, "mac"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleDeleteBluetooth(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.DeleteBluetooth(r.Context(), pathParam(r, "mac")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Bluetooth MAC deleted successfully"})
}

// ── Security logs ────────────────────────────────────────────────────────────

type deleteLogsResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseLogFilter(r.URL.Query().Get("type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.collections.SecurityLogs(filter)))
}

func (s *Server) handleDeleteLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseLogFilter(r.URL.Query().Get("type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	n, err := s.collections.DeleteLogs(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteLogsResponse{Message: "Security logs deleted successfully", Deleted: n})
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.DeleteLog(r.Context(), pathParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Security log deleted successfully"})
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	rc, err := s.collections.OpenPhoto(r.Context(), pathParam(r, "filename"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", photos.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug().Err(err).Msg("photo stream interrupted")
	}
}

// ── Status ───────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

const defaultHistoryLimit = 50

func (s *Server) handleCheckinHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	recs, err := s.checkins.History(r.Context(), pathParam(r, "deviceID"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}
