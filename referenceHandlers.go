package main

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/gin-gonic/gin"
)

func createHandler[In any, Out any](create func(context.Context, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := create(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func updateHandler[In any, Out any](update func(context.Context, int, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := update(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// idHandler serves single-row reads and deletes.
func idHandler[Out any](fn func(context.Context, int) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// listByNameHandler filters by a name prefix taken from the query key.
func listByNameHandler[Out any](key string, list func(context.Context, *string) ([]*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := list(c.Request.Context(), queryString(c, key))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func listProductsHandler(c *gin.Context) {
	hide, err := queryBool(c, "hide_product")
	if err != nil {
		respondError(c, err)
		return
	}
	supplierId, err := queryInt(c, "supplier_id")
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := models.ListProducts(c.Request.Context(), models.ProductFilter{
		Name:        queryString(c, "name"),
		HideProduct: hide,
		SupplierId:  supplierId,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func stockMovementsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if _, err := models.GetProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	results, err := models.ListStockMovements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
