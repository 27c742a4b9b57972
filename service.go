package main

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	jsonrpc "github.com/gorilla/rpc/json"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"

	est "github.com/bitcoinfees/ethgas/estimate"
	"github.com/bitcoinfees/ethgas/predict"
	"github.com/bitcoinfees/ethgas/publish"
)

type Service struct {
	Oracle *Oracle
	DLog   *DebugLog
	Cfg    config
}

// Handler serves JSON-RPC requests on / and the latest result documents under
// /json/.
func (s *Service) Handler() http.Handler {
	srv := rpc.NewServer()
	srv.RegisterCodec(methodCodec{jsonrpc.NewCodec()}, "application/json")
	srv.RegisterService(s, "")

	r := mux.NewRouter()
	r.HandleFunc("/json/"+publish.RecommendationName+".json", s.handleRecommendation).Methods("GET")
	r.HandleFunc("/json/"+publish.TableName+".json", s.handleTable).Methods("GET")
	r.Handle("/", srv).Methods("POST")
	return r
}

// methodNames maps the API method names to the Service methods.
var methodNames = map[string]string{
	"stop":         "Service.Stop",
	"status":       "Service.Status",
	"gasprice":     "Service.GasPrice",
	"predicttable": "Service.PredictTable",
	"window":       "Service.Window",
	"setdebug":     "Service.SetDebug",
	"config":       "Service.Config",
	"metrics":      "Service.Metrics",
}

// methodCodec is an rpc.Codec which resolves the API method names. Qualified
// names ("Service.Status") are passed through.
type methodCodec struct {
	rpc.Codec
}

func (c methodCodec) NewRequest(r *http.Request) rpc.CodecRequest {
	return methodCodecRequest{c.Codec.NewRequest(r)}
}

type methodCodecRequest struct {
	rpc.CodecRequest
}

func (r methodCodecRequest) Method() (string, error) {
	method, err := r.CodecRequest.Method()
	if err != nil {
		return method, err
	}
	if name, ok := methodNames[method]; ok {
		return name, nil
	}
	return method, nil
}

func (s *Service) ListenAndServe() error {
	addr := net.JoinHostPort(s.Cfg.AppRPC.Host, s.Cfg.AppRPC.Port)
	s.DLog.Logger.Info("RPC server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Service) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, _, err := s.Oracle.Result()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rec)
}

func (s *Service) handleTable(w http.ResponseWriter, r *http.Request) {
	_, table, err := s.Oracle.Result()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, table)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Service) Stop(r *http.Request, args *struct{}, reply *struct{}) error {
	go s.Oracle.Stop()
	return nil
}

func (s *Service) Status(r *http.Request, args *struct{}, reply *map[string]string) error {
	*reply = s.Oracle.Status()
	return nil
}

func (s *Service) GasPrice(r *http.Request, args *struct{}, reply **predict.Recommendation) error {
	rec, _, err := s.Oracle.Result()
	if err != nil {
		return err
	}
	*reply = rec
	return nil
}

func (s *Service) PredictTable(r *http.Request, args *struct{}, reply *predict.Table) error {
	_, table, err := s.Oracle.Result()
	if err != nil {
		return err
	}
	*reply = table
	return nil
}

// Window returns the last n observations in the window, or all of them if n
// is not positive.
func (s *Service) Window(r *http.Request, args *int, reply *[]est.Observation) error {
	obs := s.Oracle.Window()
	if n := *args; n > 0 && n < len(obs) {
		obs = obs[len(obs)-n:]
	}
	*reply = obs
	return nil
}

func (s *Service) SetDebug(r *http.Request, args *bool, reply *bool) error {
	s.DLog.SetDebug(*args)
	*reply = *args
	return nil
}

func (s *Service) Config(r *http.Request, args *struct{}, reply *interface{}) error {
	// Hide credentials just in case
	*reply = s.Cfg.masked()
	return nil
}

func (s *Service) Metrics(r *http.Request, args *struct{}, reply *metrics.Registry) error {
	*reply = s.Oracle.cfg.registry
	return nil
}
