/* Copyright 2026 The Cascata Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// cascatad serves a directory of graphs over HTTP and WebSockets,
// with optional persistent state and an optional MQTT bus for shared
// state across processes.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"regexp"
	"runtime/pprof"

	"github.com/cascata/cascata/bus"
	"github.com/cascata/cascata/core"
	"github.com/cascata/cascata/tools"
)

func main() {

	var (
		dbFile    = flag.String("d", "", "storage filename (none means in-memory)")
		graphsDir = flag.String("g", "graphs", "graphs directory")
		libDir    = flag.String("l", "libs", "libraries directory")

		httpPort  = flag.String("h", ":8080", "HTTP port for our service")
		wsService = flag.Bool("w", true, "WebSockets service")
		httpDir   = flag.String("f", "", "directory to serve via HTTP")

		mqttBroker   = flag.String("b", "", "MQTT broker for shared state (none means in-process only)")
		mqttClientID = flag.String("i", "cascatad", "MQTT client id")
		mqttUser     = flag.String("u", "", "MQTT username")
		mqttPass     = flag.String("P", "", "MQTT password")
	)

	flag.BoolVar(&Verbose, "v", false, "log lots of wonderful things")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var channel core.Channel
	if *mqttBroker == "" {
		channel = bus.NewInProc()
	} else {
		b, err := bus.NewMQTT(bus.MQTTOpts{
			Broker:    *mqttBroker,
			ClientID:  *mqttClientID,
			Username:  *mqttUser,
			Password:  *mqttPass,
			Reconnect: true,
		})
		if err != nil {
			panic(err)
		}
		b.Prefix = "cascata/"
		defer b.Close()
		channel = b
	}

	s, err := NewService(ctx, *graphsDir, *dbFile, *libDir, channel)
	if err != nil {
		panic(err)
	}
	s.Tracing = Verbose

	if *wsService {
		log.Printf("WebSockets service starting")
		if err := s.WebSocketService(ctx); err != nil {
			panic(err)
		}
	}

	if *httpDir != "" {
		log.Printf("HTTP serving files in %s", *httpDir)
		fs := http.FileServer(http.Dir(*httpDir))
		http.Handle("/static/", http.StripPrefix("/static", fs))
	}

	p := regexp.MustCompile("/graphs/([-a-zA-Z0-9_]+)\\.html")

	http.HandleFunc("/graphs/", func(w http.ResponseWriter, r *http.Request) {
		ss := p.FindStringSubmatch(r.RequestURI)
		if ss == nil {
			fmt.Fprintf(w, "No graph name in %s", r.RequestURI)
			return
		}
		err := tools.ReadAndRenderGraphPage(*graphsDir+"/"+ss[1]+".yaml", nil, w, true)
		if err != nil {
			fmt.Fprintf(w, "ReadAndRenderGraphPage error: %s", err)
		}
	})

	log.Printf("HTTP service on %s", *httpPort)
	if err = s.HTTPServer(ctx, *httpPort); err != nil {
		panic(err)
	}
}

func (s *Service) HTTPServer(ctx context.Context, port string) error {
	complain := func(w http.ResponseWriter, x interface{}, status int) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":"%s"}`+"\n", x)
	}

	http.Handle("/goroutines", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pprof.Lookup("goroutine").WriteTo(w, 1)
	}))

	http.Handle("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js, err := ioutil.ReadAll(r.Body)
		if err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err := r.Body.Close(); err != nil {
			log.Printf("Service.HTTPServer warning on Body.Close(): %v", err)
		}

		var op SOp
		if err := json.Unmarshal(js, &op); err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err = op.Do(ctx, s); err != nil {
			complain(w, err, http.StatusInternalServerError)
			return
		}
		js, err = json.Marshal(&op)
		if err != nil {
			complain(w, err, http.StatusInternalServerError)
			return
		}
		w.Write(js)
		fmt.Fprintln(w)
	}))

	return http.ListenAndServe(port, nil)
}
