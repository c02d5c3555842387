package loyaltyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// JSON ответ программы лояльности
type LoyaltyAnswer struct {
	Customer int64 `json:"customer"`
	Member   bool  `json:"member"`
}

type LoyaltyClient interface {
	GetLoyalty(ctx context.Context, customer int64) (bool, error)
}

type loyaltyClient struct {
	serviceAddr string
	client      *resty.Client
}

func NewLoyaltyClient(serviceAddr string) LoyaltyClient {
	client := resty.New().
		SetTimeout(2 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond)
	return loyaltyClient{serviceAddr: serviceAddr, client: client}
}

// GetLoyalty спрашивает, участвует ли клиент в программе. Неизвестный
// клиент - не участник.
func (client loyaltyClient) GetLoyalty(ctx context.Context, customer int64) (bool, error) {
	path := "/api/customers/" + strconv.FormatInt(customer, 10) + "/loyalty"

	setreq := client.client.R().SetContext(ctx)
	setreq.Method = http.MethodGet
	setreq.URL = client.serviceAddr + path
	setresp, err := setreq.Send()
	if err != nil {
		return false, err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var answer LoyaltyAnswer
		if err := json.Unmarshal(setresp.Body(), &answer); err != nil {
			return false, err
		}
		return answer.Member, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("loyalty request status: %d", setresp.StatusCode())
	}
}
