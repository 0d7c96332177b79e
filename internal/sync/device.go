package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/clients"
)

// DeviceSyncer talks to the door controller's own user-management API
// (ISAPI-style JSON over HTTP with basic auth).
type DeviceSyncer struct {
	base   *clients.BaseClient
	user   string
	pass   string
	logger *zap.Logger
}

// NewDeviceSyncer builds the direct device transport.
func NewDeviceSyncer(deviceURL, user, pass string, logger *zap.Logger) *DeviceSyncer {
	return &DeviceSyncer{
		base:   clients.NewBaseClient(strings.TrimSpace(deviceURL), clients.NewDefaultHTTPClient(syncTimeout)),
		user:   user,
		pass:   pass,
		logger: logger,
	}
}

type deviceValid struct {
	Enable    bool   `json:"enable"`
	BeginTime string `json:"beginTime"`
	EndTime   string `json:"endTime"`
}

type deviceRightPlan struct {
	DoorNo         int    `json:"doorNo"`
	PlanTemplateNo string `json:"planTemplateNo"`
}

type deviceUserInfo struct {
	EmployeeNo string            `json:"employeeNo"`
	Name       string            `json:"name"`
	UserType   string            `json:"userType"`
	Password   string            `json:"password,omitempty"`
	Valid      deviceValid       `json:"Valid"`
	DoorRight  string            `json:"doorRight"`
	RightPlan  []deviceRightPlan `json:"RightPlan"`
}

// SyncCredential pushes one credential straight to the controller.
func (s *DeviceSyncer) SyncCredential(ctx context.Context, op Op, user KeypadUser) (int, []byte, error) {
	headers := s.authHeaders()

	if op == OpDelete {
		body, err := json.Marshal(map[string]any{
			"UserInfoDelCond": map[string]any{
				"EmployeeNoList": []map[string]string{{"employeeNo": user.EmployeeNo}},
			},
		})
		if err != nil {
			return 0, nil, err
		}
		return s.base.Do(ctx, http.MethodPut, "/ISAPI/AccessControl/UserInfo/Delete?format=json", body, headers)
	}

	doorRights := make([]string, 0, len(user.DoorNos))
	plans := make([]deviceRightPlan, 0, len(user.DoorNos))
	for _, door := range user.DoorNos {
		doorRights = append(doorRights, strconv.Itoa(door))
		plans = append(plans, deviceRightPlan{DoorNo: door, PlanTemplateNo: "1"})
	}

	info := deviceUserInfo{
		EmployeeNo: user.EmployeeNo,
		Name:       user.Name,
		UserType:   "normal",
		Password:   user.Password,
		Valid: deviceValid{
			Enable:    true,
			BeginTime: user.ValidFrom.Format("2006-01-02T15:04:05"),
			EndTime:   user.ValidTo.Format("2006-01-02T15:04:05"),
		},
		DoorRight: strings.Join(doorRights, ","),
		RightPlan: plans,
	}
	body, err := json.Marshal(map[string]any{"UserInfo": info})
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := s.base.Do(ctx, http.MethodPost, "/ISAPI/AccessControl/UserInfo/Record?format=json", body, headers)
	if err == nil && status == http.StatusBadRequest {
		// The controller rejects a second Record for a known employeeNo;
		// fall through to Modify for true upsert semantics.
		return s.base.Do(ctx, http.MethodPut, "/ISAPI/AccessControl/UserInfo/Modify?format=json", body, headers)
	}
	return status, respBody, err
}

func (s *DeviceSyncer) authHeaders() map[string]string {
	if s.user == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(s.user + ":" + s.pass))
	return map[string]string{"Authorization": "Basic " + token}
}

var _ Syncer = (*DeviceSyncer)(nil)
