package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	pb "github.com/BrandonDHaskell/Gatekeeper/server/api/gatekeeper/v1"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// maxUploadBody bounds a whole multipart request: one photo plus form fields.
const maxUploadBody = photos.MaxSize + 64<<10

var errPhotoTooLarge = errors.New("photo exceeds size limit")

// ── Allowlists ───────────────────────────────────────────────────────────────

func (s *Server) handleCardUIDs(w http.ResponseWriter, r *http.Request) {
	uids := s.collections.CardUIDs()
	if wantsProtobuf(r) {
		writeProto(w, http.StatusOK, pb.Identifiers(uids))
		return
	}
	out := types.CardUIDList{Cards: make([]types.CardUID, len(uids))}
	for i, uid := range uids {
		out.Cards[i] = types.CardUID{UID: uid}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFingerprintIDs(w http.ResponseWriter, r *http.Request) {
	ids := s.collections.FingerprintIDs()
	if wantsProtobuf(r) {
		writeProto(w, http.StatusOK, pb.Identifiers(ids))
		return
	}
	out := types.FingerprintIDList{Fingerprints: make([]types.FingerprintRef, len(ids))}
	for i, id := range ids {
		out.Fingerprints[i] = types.FingerprintRef{FingerprintID: id}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBluetoothMACs(w http.ResponseWriter, r *http.Request) {
	devices := s.collections.BluetoothDevices()
	if wantsProtobuf(r) {
		macs := make([]string, len(devices))
		for i, d := range devices {
			macs[i] = d.MAC
		}
		writeProto(w, http.StatusOK, pb.Identifiers(macs))
		return
	}
	writeJSON(w, http.StatusOK, types.BluetoothList{Devices: nonNil(devices)})
}

// ── Check-in and access ──────────────────────────────────────────────────────

func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request) {
	var req types.CheckinRequest
	asProto := isProtobuf(r)
	if asProto {
		m := pb.New(pb.CheckinRequestName)
		if err := readProto(r, m); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		req = checkinRequestFromProto(m)
		if !validate(w, &req) {
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.checkins.Checkin(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if asProto {
		writeProto(w, http.StatusOK, checkinResponseToProto(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req types.AccessRequest
	asProto := isProtobuf(r)
	if asProto {
		m := pb.New(pb.AccessRequestName)
		if err := readProto(r, m); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		req = accessRequestFromProto(m)
		if !validate(w, &req) {
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.access.Decide(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if asProto {
		writeProto(w, http.StatusOK, accessResponseToProto(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Registration from devices ────────────────────────────────────────────────

func (s *Server) handleDeviceAddCard(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := s.collections.AddCard(r.Context(), req.UID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("uid", card.UID).Str("name", card.Name).Msg("card registered from device")
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleDeviceRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.collections.RegisterUser(r.Context(), req.CardUID, req.FingerprintID, req.UserName, true)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Int("id", user.ID).Str("fingerprint_id", user.FingerprintID).Msg("user registered from device")
	writeJSON(w, http.StatusCreated, user)
}

// ── Security log submissions ─────────────────────────────────────────────────

type photoFailureBody struct {
	Error string            `json:"error"`
	Code  string            `json:"code"`
	Log   types.SecurityLog `json:"log"`
}

// handleRecordLog accepts JSON or a multipart form whose optional "photo"
// part is kept for access_denied entries.
func (s *Server) handleRecordLog(w http.ResponseWriter, r *http.Request) {
	var req types.SecurityLogRequest
	var photo []byte

	if isMultipart(r) {
		if !s.parseUpload(w, r) {
			return
		}
		defer r.MultipartForm.RemoveAll()
		req = logRequestFromForm(r)
		if !validate(w, &req) {
			return
		}
		var err error
		if photo, err = readPhoto(r); err != nil {
			s.writePhotoError(w, err)
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.collections.RecordLog(r.Context(), service.LogInput{
		Type:        req.Type,
		Description: req.Description,
		DeviceID:    req.DeviceID,
		Timestamp:   req.Timestamp,
		Photo:       photo,
	})
	if err != nil && errors.Is(err, service.ErrPhotoWrite) && entry.ID != "" {
		writeJSON(w, http.StatusInternalServerError, photoFailureBody{
			Error: "Failed to save photo",
			Code:  "photo_write_failed",
			Log:   entry,
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleUploadPhoto is the intrusion report: the photo is mandatory and the
// type defaults to access_denied.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		s.writeServiceError(w, r, service.ErrPhotoRequired)
		return
	}
	if !s.parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := logRequestFromForm(r)
	if req.Type != "" && !req.Type.Valid() {
		s.writeServiceError(w, r, service.ErrInvalidLogType)
		return
	}
	photo, err := readPhoto(r)
	if err != nil {
		s.writePhotoError(w, err)
		return
	}

	entry, err := s.collections.UploadPhoto(r.Context(), service.PhotoUpload{
		Type:        req.Type,
		Description: req.Description,
		DeviceID:    req.DeviceID,
		Photo:       photo,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_form", "invalid multipart form")
		return false
	}
	return true
}

func logRequestFromForm(r *http.Request) types.SecurityLogRequest {
	return types.SecurityLogRequest{
		Type:        types.LogType(r.FormValue("type")),
		Description: r.FormValue("description"),
		DeviceID:    r.FormValue("deviceId"),
		Timestamp:   r.FormValue("timestamp"),
	}
}

// readPhoto returns the "photo" part, or nil when the form has none.
func readPhoto(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read photo part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, photos.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read photo part: %w", err)
	}
	if len(data) > photos.MaxSize {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

func (s *Server) writePhotoError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPhotoTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "photo exceeds size limit")
		return
	}
	s.logger.Warn().Err(err).Msg("unreadable photo upload")
	writeError(w, http.StatusBadRequest, "bad_form", "invalid photo part")
}
