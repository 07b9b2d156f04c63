package controllers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"proficiency/backend/apperr"
	"proficiency/backend/certificates"
	"proficiency/backend/utils"
)

type CertificateController struct {
	Issuer *certificates.Issuer
}

func NewCertificateController(issuer *certificates.Issuer) *CertificateController {
	return &CertificateController{Issuer: issuer}
}

// Download godoc
// @Summary Download the certificate of an attempt
// @Description Issues identifiers on first request and renders the PDF
// @Tags candidate
// @Produce application/pdf
// @Param id path int true "Attempt ID"
// @Success 200 {file} binary
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /candidate/attempts/{id}/certificate.pdf [get]
func (cc *CertificateController) Download(c *fiber.Ctx) error {
	s := utils.CurrentSession(c)
	if s == nil {
		return apperr.Unauthorized()
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return apperr.NotFound("Not found")
	}

	doc, err := cc.Issuer.Issue(c.UserContext(), uint(id), s)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, doc.Filename()))
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.Status(fiber.StatusOK).Send(doc.PDF)
}

// Verify godoc
// @Summary Verify a certificate
// @Description Public lookup used by the QR code printed on certificates
// @Tags verify
// @Produce json
// @Param slug path string true "Verification slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /verify/{slug} [get]
func (cc *CertificateController) Verify(c *fiber.Ctx) error {
	v, err := cc.Issuer.Verify(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, v)
}
