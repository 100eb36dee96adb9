package main

import (
	"bytes"
	"fmt"
	"net/http"
	"path"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

const maxUploadSizeBytes = 5 << 20 // 5MB

// signed-agreement scans run larger than signature images
const maxDocumentSizeBytes = 20 << 20 // 20MB

// signatureWidth is the normalized width for generated email/physical
// signatures; height scales proportionally.
const signatureWidth = 600

// signatureUploadHandler accepts a multipart signature image, normalizes it
// and stores it in the firm's bucket. The upload is an optional decoration
// on whatever flow triggered it, so a storage failure degrades to a warning
// instead of failing the request.
func signatureUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("signature")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
			return
		}
		defer file.Close()

		img, err := imaging.Decode(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a valid image"})
			return
		}
		normalized := imaging.Resize(img, signatureWidth, 0, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, normalized, imaging.PNG); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode image"})
			return
		}

		objectName := path.Join("signatures", fmt.Sprintf("%s.png", utils.GenerateUniqueFilename()))
		url, err := utils.UploadBytesToGCS(c.Request.Context(), objectName, buf.Bytes(), "image/png")
		if err != nil {
			config.LogError(logger, "uploads.go", "signatureUploadHandler", "UploadBytesToGCS", objectName, err)
			c.JSON(http.StatusOK, gin.H{
				"warnings": []string{"signature upload failed; please retry"},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url, "object": objectName})
	}
}

// documentUploadHandler stores a signed-agreement scan or other lead document
// as-is. Unlike signatures, documents are primary content, so a storage
// failure fails the request.
func documentUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("document")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document file is required"})
			return
		}
		if fileHeader.Size > maxDocumentSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
			return
		}
		defer file.Close()

		objectName := path.Join("documents", utils.GenerateUniqueFilename()+path.Ext(fileHeader.Filename))
		url, err := utils.UploadFileToGCS(c.Request.Context(), objectName, file)
		if err != nil {
			config.LogError(logger, "uploads.go", "documentUploadHandler", "UploadFileToGCS", objectName, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "document upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url, "object": objectName})
	}
}
