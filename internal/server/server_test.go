package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"zentaohelper/internal/server"
	"zentaohelper/internal/types"
)

type mockExecutor struct {
	executeFn func(ctx context.Context, text string) types.Response
	inFlight  int32
	maxSeen   int32
	texts     []string
	mu        sync.Mutex
}

func (m *mockExecutor) Execute(ctx context.Context, text string) types.Response {
	n := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&m.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&m.maxSeen, seen, n) {
			break
		}
	}
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.executeFn != nil {
		return m.executeFn(ctx, text)
	}
	return types.OK(types.Payload{Message: "ok", Type: "tasks"})
}

func (m *mockExecutor) HelpText() string { return "# 禅道助手 - 使用帮助" }

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"data"`
	Error *types.ErrorBody `json:"error"`
}

func post(h http.Handler, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	Expect(json.Unmarshal(w.Body.Bytes(), &env)).To(Succeed())
	return w, env
}

var _ = Describe("Server", func() {
	var (
		exec *mockExecutor
		h    http.Handler
	)

	BeforeEach(func() {
		exec = &mockExecutor{}
		h = server.New(exec).Handler()
	})

	It("reports health", func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"ok"`))
	})

	It("serves help without executing anything", func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/help", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var env envelope
		Expect(json.Unmarshal(w.Body.Bytes(), &env)).To(Succeed())
		Expect(env.Success).To(BeTrue())
		Expect(env.Data.Type).To(Equal("help"))
		Expect(exec.texts).To(BeEmpty())
	})

	It("executes a command", func() {
		w, env := post(h, `{"text":"查看我的任务"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(env.Success).To(BeTrue())
		Expect(env.Data.Message).To(Equal("ok"))
		Expect(exec.texts).To(Equal([]string{"查看我的任务"}))
	})

	It("returns business failures with status 200", func() {
		exec.executeFn = func(context.Context, string) types.Response {
			return types.Fail(types.New(types.CodeUnknownIntent, ""))
		}
		w, env := post(h, `{"text":"你好"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(env.Success).To(BeFalse())
		Expect(env.Error.Code).To(Equal(types.CodeUnknownIntent))
	})

	DescribeTable("rejects malformed bodies",
		func(body string) {
			w, env := post(h, body)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Success).To(BeFalse())
			Expect(env.Error.Code).To(Equal(types.CodeInvalidParameter))
			Expect(exec.texts).To(BeEmpty())
		},
		Entry("not json", `text=hi`),
		Entry("missing text", `{}`),
		Entry("empty text", `{"text":""}`),
	)

	It("runs one command at a time", func() {
		exec.executeFn = func(context.Context, string) types.Response {
			time.Sleep(20 * time.Millisecond)
			return types.OK(types.Payload{Message: "ok"})
		}
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				post(h, `{"text":"查看我的任务"}`)
			}()
		}
		wg.Wait()
		Expect(atomic.LoadInt32(&exec.maxSeen)).To(Equal(int32(1)))
	})

	It("shuts down when the context ends", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := l.Addr().String()
		Expect(l.Close()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- server.New(exec).Run(ctx, addr) }()

		Eventually(func() error {
			resp, err := http.Get("http://" + addr + "/health")
			if err == nil {
				resp.Body.Close()
			}
			return err
		}, 3*time.Second, 50*time.Millisecond).Should(Succeed())

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})
