package checkoutapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
)

// NewBuyerDataFromRequest accepts both a JSON body and a html form post.
func NewBuyerDataFromRequest(r *http.Request) (BuyerDataRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		err := r.ParseForm()
		if err != nil {
			return BuyerDataRequest{}, myerrors.NewInvalidInputError(err)
		}
		return NewBuyerDataFromValues(r.PostForm)
	case "", "application/json":
		req := BuyerDataRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			return BuyerDataRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err))
		}
		return req, nil
	default:
		return BuyerDataRequest{}, myerrors.NewUnsupportedMediaTypeError(fmt.Errorf("unsupported content-type %s", mediaType))
	}
}

func NewBuyerDataFromValues(values url.Values) (BuyerDataRequest, error) {
	req := BuyerDataRequest{}
	err := formcodec.NewDecoder().Decode(&req, values)
	if err != nil {
		return req, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}

	return req, nil
}

func (req BuyerDataRequest) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(req)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}

	return values, nil
}
