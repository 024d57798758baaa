package server

import (
	"log/slog"
	"net/http"
)

type ConnectBoardRequest struct {
	Method       string `json:"method" validate:"required,oneof=qr serial"`
	SerialNumber string `json:"serialNumber" validate:"required_if=Method serial,serial"`
}

func handleConnectBoard(boards *Boards, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConnectBoardRequest
		if !v.decode(w, r, &req) {
			return
		}
		st := boards.Connect(userFrom(r).ID, req.Method, req.SerialNumber)
		writeJSON(w, http.StatusAccepted, st)
	}
}

func handleBoardStatus(boards *Boards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, boards.Status(userFrom(r).ID))
	}
}

func handleDisconnectBoard(boards *Boards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, boards.Disconnect(userFrom(r).ID))
	}
}

// boardPairedHook logs the outcome of a pairing attempt and tells the user.
func boardPairedHook(broker *Broker, logger *slog.Logger) func(string, PairingStatus) {
	return func(userID string, st PairingStatus) {
		logger.Info("board pairing resolved", "user_id", userID, "serial", st.SerialNumber, "status", st.Status)
		n := Notice{
			Type:        NoticeBoardPaired,
			Title:       "تم الاتصال بنجاح!",
			Description: "تم ربط اللوحة الذكية بحسابك",
		}
		if st.Status != BoardConnected {
			n.Title = "فشل الاتصال"
			n.Description = "لم يتم العثور على اللوحة، تحقق من الرقم التسلسلي"
		}
		broker.Publish(userID, n)
	}
}
