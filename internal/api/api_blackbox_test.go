package api_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"visa-onboarding-service/internal/api"
	"visa-onboarding-service/internal/auth"
	"visa-onboarding-service/internal/domain"
	"visa-onboarding-service/internal/storage"
	"visa-onboarding-service/internal/visa"
)

var _ = Describe("Visa API", func() {
	var (
		server    *httptest.Server
		store     *storage.MemoryStore
		releases  *recordingReleases
		validator *auth.Validator
		employee  client
		hr        client
	)

	BeforeEach(func() {
		store = storage.NewMemoryStore()
		store.PutEmployee(domain.Employee{ID: "emp-1", FirstName: "Ana", LastName: "Silva", Email: "ana@example.com", OnboardingStatus: domain.OnboardingApproved})
		releases = &recordingReleases{}

		gateway := visa.NewGateway(visa.Options{
			Store:       store,
			Eligibility: store,
			Files:       newMemoryFiles(),
			Releases:    releases,
			Policy:      domain.DefaultSequencePolicy(),
		})

		var err error
		validator, err = auth.NewValidator("suite-secret")
		Expect(err).ToNot(HaveOccurred())

		server = httptest.NewServer(api.NewRouter(api.NewHandler(gateway, store, 1<<20, nil), validator))
		DeferCleanup(server.Close)

		employee = newClient(server.URL, validator, domain.Caller{ID: "emp-1", Role: domain.RoleEmployee})
		hr = newClient(server.URL, validator, domain.Caller{ID: "hr-1", Role: domain.RoleHR})
	})

	It("serves health and readiness without a token", func() {
		anon := client{baseURL: server.URL}
		Expect(anon.get("/healthz", nil)).To(Equal(http.StatusOK))
		Expect(anon.get("/readyz", nil)).To(Equal(http.StatusOK))
		Expect(anon.get("/v1/visa/next-step", nil)).To(Equal(http.StatusUnauthorized))
	})

	It("walks an employee through the whole sequence", func() {
		var state domain.VisaState
		Expect(employee.get("/v1/visa/next-step", &state)).To(Equal(http.StatusOK))
		Expect(state.WorkflowEnabled).To(BeTrue())
		Expect(state.Step.Type).To(Equal(domain.DocTypeOPTReceipt))
		Expect(state.Step.Status).To(Equal(domain.StatusNotSubmitted))

		sequence := domain.DefaultSequencePolicy().AllTypes()
		for i, docType := range sequence {
			By("submitting " + string(docType))
			var submitted stepEnvelope
			Expect(employee.upload(docType, "scan.pdf", []byte("%PDF-1.4 scan"), &submitted)).To(Equal(http.StatusCreated))
			Expect(submitted.Step.Type).To(Equal(docType))
			Expect(submitted.Step.Status).To(Equal(domain.StatusPending))

			var pending listEnvelope
			Expect(hr.get("/v1/hr/visa/pending", &pending)).To(Equal(http.StatusOK))
			Expect(pending.Items).To(HaveLen(1))
			Expect(pending.Items[0].Employee.Email).To(Equal("ana@example.com"))

			By("approving " + string(docType))
			var reviewed stepEnvelope
			Expect(hr.postJSON("/v1/hr/visa/documents/"+submitted.Step.DocumentID+"/status", map[string]string{"status": "approved"}, &reviewed)).To(Equal(http.StatusOK))
			if i < len(sequence)-1 {
				Expect(reviewed.Step.Type).To(Equal(sequence[i+1]))
				Expect(reviewed.Step.Status).To(Equal(domain.StatusNotSubmitted))
			} else {
				Expect(reviewed.Step.Type).To(Equal(docType))
				Expect(reviewed.Step.Status).To(Equal(domain.StatusApproved))
			}
		}

		var pending, all listEnvelope
		Expect(hr.get("/v1/hr/visa/pending", &pending)).To(Equal(http.StatusOK))
		Expect(pending.Items).To(BeEmpty())
		Expect(hr.get("/v1/hr/visa/all", &all)).To(Equal(http.StatusOK))
		Expect(all.Items).To(HaveLen(1))
		Expect(releases.released()).To(BeEmpty())
	})

	It("lets HR reject with feedback and the employee resubmit", func() {
		var first stepEnvelope
		Expect(employee.upload(domain.DocTypeOPTReceipt, "receipt.pdf", []byte("blurry"), &first)).To(Equal(http.StatusCreated))

		var annotated stepEnvelope
		Expect(hr.postJSON("/v1/hr/visa/documents/"+first.Step.DocumentID+"/feedback", map[string]string{"feedback": "scan is unreadable"}, &annotated)).To(Equal(http.StatusOK))
		Expect(annotated.Step.Feedback).To(Equal("scan is unreadable"))
		Expect(annotated.Step.Status).To(Equal(domain.StatusPending))

		var rejected stepEnvelope
		Expect(hr.postJSON("/v1/hr/visa/documents/"+first.Step.DocumentID+"/status", map[string]string{"status": "rejected"}, &rejected)).To(Equal(http.StatusOK))
		Expect(rejected.Step.Status).To(Equal(domain.StatusRejected))
		Expect(rejected.Step.Feedback).To(Equal("scan is unreadable"))

		var state domain.VisaState
		Expect(employee.get("/v1/visa/next-step", &state)).To(Equal(http.StatusOK))
		Expect(state.Step.Status).To(Equal(domain.StatusRejected))

		var second stepEnvelope
		Expect(employee.upload(domain.DocTypeOPTReceipt, "receipt.pdf", []byte("clear"), &second)).To(Equal(http.StatusCreated))
		Expect(second.Step.Status).To(Equal(domain.StatusPending))
		Expect(second.Step.Feedback).To(BeEmpty())
		Expect(releases.released()).To(ConsistOf(first.Step.StorageRef))

		var url map[string]string
		Expect(employee.get("/v1/visa/documents/"+second.Step.DocumentID+"/url", &url)).To(Equal(http.StatusOK))
		Expect(url["url"]).To(ContainSubstring(second.Step.StorageRef))
	})

	It("maps gateway errors to status codes", func() {
		var out stepEnvelope
		Expect(employee.upload(domain.DocTypeI983, "i983.pdf", []byte("early"), &out)).To(Equal(http.StatusConflict))
		Expect(employee.upload("W-2", "w2.pdf", []byte("nope"), &out)).To(Equal(http.StatusBadRequest))

		Expect(employee.get("/v1/hr/visa/pending", nil)).To(Equal(http.StatusForbidden))
		Expect(hr.postJSON("/v1/hr/visa/documents/missing/status", map[string]string{"status": "approved"}, nil)).To(Equal(http.StatusNotFound))
		Expect(hr.postJSON("/v1/hr/visa/documents/missing/status", map[string]string{"status": "maybe"}, nil)).To(Equal(http.StatusBadRequest))
		Expect(hr.upload(domain.DocTypeOPTReceipt, "x.pdf", []byte("x"), nil)).To(Equal(http.StatusForbidden))

		store.SetOnboardingStatus("emp-1", domain.OnboardingPending)
		Expect(employee.upload(domain.DocTypeOPTReceipt, "receipt.pdf", []byte("x"), &out)).To(Equal(http.StatusConflict))

		var state domain.VisaState
		Expect(employee.get("/v1/visa/next-step", &state)).To(Equal(http.StatusOK))
		Expect(state.WorkflowEnabled).To(BeFalse())

		other := newClient(server.URL, validator, domain.Caller{ID: "emp-2", Role: domain.RoleEmployee})
		Expect(other.get("/v1/visa/next-step?employee_id=emp-1", nil)).To(Equal(http.StatusForbidden))
	})
})
