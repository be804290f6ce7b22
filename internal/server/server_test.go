package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/server"
	"github.com/beevans/integrated-manager-for-lustre/internal/store"
)

func do(method, path string, body []byte) (int, []byte) {
	req, err := http.NewRequest(method, testServer.URL+path, bytes.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

func encode(tree device.Device) []byte {
	data, err := device.Marshal(tree)
	Expect(err).NotTo(HaveOccurred())
	return data
}

var _ = Describe("Device server", Ordered, func() {
	donor := device.ScsiDevice{Serial: device.Ptr("S1"), DevPath: "/dev/sdb"}.With(device.MdRaid{UUID: "U1"})
	oss1 := device.Root{}.With(donor)
	oss2 := device.Root{}.With(device.ScsiDevice{Serial: device.Ptr("S1"), DevPath: "/dev/sdq"})

	It("should reject malformed trees", func() {
		status, _ := do(http.MethodPost, "/devices/oss1", []byte("{not json"))
		Expect(status).To(Equal(http.StatusBadRequest))

		By("rejecting a tree that is not rooted at Root")
		status, body := do(http.MethodPost, "/devices/oss1", encode(device.MdRaid{UUID: "U1"}))
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(string(body)).To(ContainSubstring("not Root"))

		By("rejecting an empty document")
		status, _ = do(http.MethodPost, "/devices/oss1", []byte("null"))
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should store the first host", func() {
		status, body := do(http.MethodPost, "/devices/oss1", encode(oss1))
		Expect(status).To(Equal(http.StatusOK))

		var resp server.UploadResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Run.Hosts).To(Equal(1))
		Expect(resp.Run.Donors).To(Equal(1))
		Expect(device.Equal(resp.Tree.Device, oss1)).To(BeTrue())
	})

	It("should propagate virtual devices to a host that shares the disk", func() {
		status, body := do(http.MethodPost, "/devices/oss2", encode(oss2))
		Expect(status).To(Equal(http.StatusOK))

		var resp server.UploadResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Run.Hosts).To(Equal(2))
		Expect(resp.Run.Changed).To(ConsistOf("oss2"))
		Expect(device.Equal(resp.Tree.Device, oss1)).To(BeTrue())

		By("persisting the reconciled tree")
		status, body = do(http.MethodGet, "/devices/oss2", nil)
		Expect(status).To(Equal(http.StatusOK))
		stored, err := device.Unmarshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(device.Equal(stored, oss1)).To(BeTrue())
	})

	It("should list every host", func() {
		status, body := do(http.MethodGet, "/devices", nil)
		Expect(status).To(Equal(http.StatusOK))

		var snapshots []device.Snapshot
		Expect(json.Unmarshal(body, &snapshots)).To(Succeed())
		Expect(snapshots).To(HaveLen(2))
		Expect(snapshots[0].Host).To(Equal("oss1"))
		Expect(snapshots[1].Host).To(Equal("oss2"))
	})

	It("should reconcile stored trees on demand", func() {
		status, body := do(http.MethodPost, "/reconcile", nil)
		Expect(status).To(Equal(http.StatusOK))

		var resp server.UploadResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Run.Hosts).To(Equal(2))
		Expect(resp.Run.Changed).To(BeEmpty())
		Expect(resp.Tree).To(BeNil())
	})

	It("should report run history", func() {
		status, body := do(http.MethodGet, "/runs", nil)
		Expect(status).To(Equal(http.StatusOK))

		var runs []*store.Run
		Expect(json.Unmarshal(body, &runs)).To(Succeed())
		Expect(runs).To(HaveLen(3))

		status, body = do(http.MethodGet, "/runs?limit=1", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(body, &runs)).To(Succeed())
		Expect(runs).To(HaveLen(1))

		status, _ = do(http.MethodGet, "/runs?limit=lots", nil)
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should delete hosts", func() {
		status, _ := do(http.MethodGet, "/devices/missing", nil)
		Expect(status).To(Equal(http.StatusNotFound))

		status, _ = do(http.MethodDelete, "/devices/oss1", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, _ = do(http.MethodDelete, "/devices/oss1", nil)
		Expect(status).To(Equal(http.StatusNotFound))

		status, _ = do(http.MethodGet, "/devices/oss1", nil)
		Expect(status).To(Equal(http.StatusNotFound))
	})

	It("should serve health and metrics", func() {
		status, _ := do(http.MethodGet, "/healthz", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, body := do(http.MethodGet, "/metrics", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("iml_device_reconcile_runs_total 3"))
		Expect(string(body)).To(ContainSubstring(`iml_device_device_uploads_total{result="rejected"} 3`))
	})
})
