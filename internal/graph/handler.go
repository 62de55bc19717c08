package graph

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront-be/internal/logger"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves queries and mutations against the embedded schema.
type Handler struct {
	schema   *ast.Schema
	query    map[string]fieldFunc
	mutation map[string]fieldFunc
}

func NewHandler(r *Resolver) *Handler {
	return &Handler{
		schema:   NewSchema(),
		query:    r.queryFields(),
		mutation: r.mutationFields(),
	}
}

func readParams(r *http.Request) (*graphql.RawParams, error) {
	params := &graphql.RawParams{}
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		params.Query = q.Get("query")
		params.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params.Variables); err != nil {
				return nil, errors.New("variables could not be decoded")
			}
		}
		return params, nil
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(params); err != nil {
		return nil, errors.New("json request body could not be decoded")
	}
	return params, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := readParams(r)
	if err != nil {
		writeResponse(w, http.StatusBadRequest, &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%s", err.Error())}})
		return
	}

	doc, errs := gqlparser.LoadQuery(h.schema, params.Query)
	if len(errs) > 0 {
		writeResponse(w, http.StatusUnprocessableEntity, &graphql.Response{Errors: errs})
		return
	}

	op := doc.Operations.ForName(params.OperationName)
	if op == nil {
		writeResponse(w, http.StatusUnprocessableEntity, &graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", params.OperationName)},
		})
		return
	}
	switch {
	case op.Operation == ast.Subscription:
		writeResponse(w, http.StatusBadRequest, &graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("subscriptions are not supported")},
		})
		return
	case op.Operation != ast.Query && r.Method == http.MethodGet:
		writeResponse(w, http.StatusNotAcceptable, &graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("GET requests only allow query operations")},
		})
		return
	}

	vars, err := validator.VariableValues(h.schema, op, params.Variables)
	if err != nil {
		writeResponse(w, http.StatusUnprocessableEntity, &graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("%s", err.Error())},
		})
		return
	}

	ctx := withResponseWriter(r.Context(), w)
	data, errs := h.execute(ctx, op, vars)

	resp := &graphql.Response{Errors: errs}
	if data != nil {
		if resp.Data, err = json.Marshal(data); err != nil {
			logger.FromCtx(ctx).Error("failed to encode graphql data", zap.Error(err))
			writeResponse(w, http.StatusInternalServerError, &graphql.Response{
				Errors: gqlerror.List{gqlerror.Errorf("internal server error")},
			})
			return
		}
	}
	writeResponse(w, http.StatusOK, resp)
}

func writeResponse(w http.ResponseWriter, code int, resp *graphql.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
