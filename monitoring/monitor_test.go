package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/boardcheck/board/emulator"
	"github.com/sarchlab/boardcheck/dmatest"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
}

func get(m *Monitor, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	m.Router().ServeHTTP(rec, req)

	return rec
}

func runEngine(name string) *dmatest.Engine {
	b := emulator.MakeBuilder().Build("Board")
	dev, err := b.Open()
	Expect(err).NotTo(HaveOccurred())
	defer dev.Close()

	now := time.Unix(0, 0)
	e := dmatest.MakeBuilder().
		WithDMA(dev).
		WithBufferSize(256).
		WithBufferCount(8).
		WithMaxReports(2).
		WithClock(func() time.Time {
			now = now.Add(100 * time.Millisecond)
			return now
		}).
		Build(name)

	Expect(e.Run(&dmatest.StopFlag{})).To(Succeed())

	return e
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
		m.profileDuration = 10 * time.Millisecond
	})

	It("should fall back to a random port for privileged ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(32776)
		Expect(m.portNumber).To(Equal(32776))
	})

	It("should list the routes at the root", func() {
		rec := get(m, "/")

		var rsp []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(ContainElement("/api/stats/{name}"))
	})

	Context("with a registered engine", func() {
		BeforeEach(func() {
			m.RegisterEngine(runEngine("DMA"))
		})

		It("should list engines", func() {
			rec := get(m, "/api/engines")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal(`["DMA"]`))
		})

		It("should report engine statistics", func() {
			rec := get(m, "/api/stats/DMA")

			var stats map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats["state"]).To(Equal("TERMINATED"))
			Expect(stats["reports"]).To(BeNumerically("==", 2))
			Expect(stats["buffer_count"]).To(BeNumerically("==", 8))
		})

		It("should report a single statistics field", func() {
			query := url.PathEscape(
				`{"engine_name":"DMA","field_name":"Counters.WriterSubmitted"}`)
			rec := get(m, "/api/field/"+query)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var submitted uint64
			Expect(json.Unmarshal(rec.Body.Bytes(), &submitted)).To(Succeed())
			Expect(submitted).To(BeNumerically(">", 0))
		})

		It("should reject unknown fields", func() {
			query := url.PathEscape(
				`{"engine_name":"DMA","field_name":"Nothing"}`)
			rec := get(m, "/api/field/"+query)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should serialize the engine", func() {
			rec := get(m, "/api/engine/DMA")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Len()).To(BeNumerically(">", 0))
		})

		It("should answer 404 for unknown engines", func() {
			rec := get(m, "/api/stats/Other")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("Programming", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		rec := get(m, "/api/progress")

		var bars []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("Programming"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 2))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))

		m.CompleteProgressBar(bar)

		rec = get(m, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report process resources", func() {
		rec := get(m, "/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		rec := get(m, "/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			Field1: 1,
		}

		elem, err := m.walkFields(s, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			Field3: &sampleStruct{
				Field2: "abc",
			},
		}

		elem, err := m.walkFields(s, "Field3.Field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{
					{Field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should fail on a bad slice index", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "Field4.3")

		Expect(err).To(HaveOccurred())
	})
})
